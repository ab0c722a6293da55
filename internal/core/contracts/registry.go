package contracts

import "context"

// Registry is the per-instance bookkeeping of which connection sessions are
// attached to which fan-out channel. Delivery itself rides each session's
// own broker subscription, so the registry only has to count and track, not
// look up.
type Registry interface {
	Add(c Client)
	Remove(c Client)
	// Len returns the number of registered sessions across all channels.
	Len() int
}

// Client is the minimal interface the registry and fan-out side need to talk
// to one WebSocket connection session.
type Client interface {
	SessionID() string
	Channel() string
	Send(ctx context.Context, data []byte) error
	Close()
}
