package redis

import (
	"context"
	"sync"

	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"

	"github.com/redis/go-redis/v9"
)

// RedisPubSub is the broker behind the conversation fan-out. One channel per
// canonical conversation key; every instance with an interested session
// subscribes to the same channel.
type RedisPubSub struct {
	rdb *redis.Client
}

func NewRedisPubSub(rdb *redis.Client) *RedisPubSub {
	return &RedisPubSub{rdb: rdb}
}

func (p *RedisPubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.rdb.Publish(ctx, channel, payload).Err()
}

func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (contracts.Subscription, error) {
	pubsub := p.rdb.Subscribe(ctx, channel)
	// Force the subscription onto the wire before the caller relies on it.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	sub := &redisSubscription{
		pubsub:  pubsub,
		channel: channel,
		in:      pubsub.Channel(),
		out:     make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	channel   string
	in        <-chan *redis.Message
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) C() <-chan []byte {
	return s.out
}

// Close unsubscribes first and releases the broker connection after, so
// nothing is delivered once teardown has begun.
func (s *redisSubscription) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	if err := s.pubsub.Unsubscribe(ctx, s.channel); err != nil {
		_ = s.pubsub.Close()
		return err
	}
	return s.pubsub.Close()
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	// in terminates when the broker connection is closed. The done guard
	// keeps a full out buffer with no reader left from blocking the pump
	// past teardown.
	for msg := range s.in {
		select {
		case s.out <- []byte(msg.Payload):
		case <-s.done:
			return
		}
	}
}
