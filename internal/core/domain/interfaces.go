package domain

import "context"

// MessageRepository is the authoritative, append-only conversation store.
type MessageRepository interface {
	// Append persists a new message and returns it with the store-assigned
	// id and created_at. Must run inside a transaction so a failed write
	// rolls back cleanly.
	Append(ctx context.Context, senderID, recipientID int64, text string) (*Message, error)
	// QueryRange returns a page of the dialog between two users. The page is
	// selected newest-first (offset 0 = most recent message) but the returned
	// slice is ordered by ascending id.
	QueryRange(ctx context.Context, firstUserID, secondUserID int64, limit, offset int) ([]Message, error)
}

// UserRepository resolves whether a counterpart id refers to a known user.
// Account lifecycle itself is handled outside this core.
type UserRepository interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}
