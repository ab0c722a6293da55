package contracts

import "context"

// Subscription is one live broker subscription scoped to a single connection
// session.
type Subscription interface {
	// C is the stream of payloads published on the subscribed channel. It is
	// closed after Close, once the broker-side subscription is released.
	C() <-chan []byte
	// Close unsubscribes from the channel first and then releases the
	// underlying broker connection, so no payload is delivered after
	// teardown begins.
	Close(ctx context.Context) error
}

// PubSub is the broker-mediated fan-out. Publishing on a channel reaches
// every subscribed session on every server instance, in publish order.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}
