package contracts

import (
	"context"

	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
)

// MessageCache stores, per (asking user, counterpart) pair, a bounded window
// of the most recent messages of their dialog in ascending id order with the
// newest message last. Entries are TTL-based and lazily created: only a
// history read materializes one, never a live append.
//
// The cache is a performance layer. Implementations must keep each entry
// contiguous with the tail of the true history; reconciliation with the
// authoritative store on partial hits is the caller's job.
type MessageCache interface {
	// ReadWindow returns the full cached window for the pair, or nil when
	// no entry exists.
	ReadWindow(ctx context.Context, askerID, otherID int64) ([]domain.MessageRead, error)
	// WriteWindow replaces the entry with the given window and resets its
	// TTL. Windows longer than the retention cap are trimmed to their most
	// recent messages.
	WriteWindow(ctx context.Context, askerID, otherID int64, messages []domain.MessageRead) error
	// Append adds a new message to the tail of an existing entry. Absent
	// entries are left absent. refreshTTL resets the entry's expiry to the
	// full TTL; otherwise the remaining TTL is kept.
	Append(ctx context.Context, askerID, otherID int64, message domain.MessageRead, refreshTTL bool) error
	// RefreshTTL extends an existing entry's expiry to the full TTL.
	RefreshTTL(ctx context.Context, askerID, otherID int64) error
}
