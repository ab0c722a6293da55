package contracts

import "context"

// PresenceTracker counts the currently open presence connections per user
// across all server instances. A user is online while at least one presence
// connection is open; the counter key is removed entirely once it drops to
// zero, so existence of the key is the online signal.
type PresenceTracker interface {
	// MarkOnline atomically increments the user's connection counter.
	MarkOnline(ctx context.Context, userID int64) error
	// MarkOffline atomically decrements the counter and removes the key
	// when the result is zero or below.
	MarkOffline(ctx context.Context, userID int64) error
	// IsOnline reports whether the user has any open presence connection.
	IsOnline(ctx context.Context, userID int64) (bool, error)
}
