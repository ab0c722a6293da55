package postgres

import (
	"context"
	"database/sql"

	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
)

// UserRepo only resolves counterpart ids. Registration and authentication
// live outside this service.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	var exists bool
	err := exec.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM "user" WHERE id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
