package ws

import (
	"context"
	"errors"
	"sync"
)

// RuntimeClient is the registry-facing handle of one messaging session. All
// outbound traffic (fan-out payloads and error echoes) goes through the
// buffered out channel so the two session loops never write to the socket
// concurrently.
type RuntimeClient struct {
	ctx       context.Context
	cancel    context.CancelFunc
	ws        *WebSocket
	sessionID string
	channel   string
	out       chan []byte
	once      sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	sessionID, channel string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:       ctx,
		cancel:    cancel,
		ws:        ws,
		sessionID: sessionID,
		channel:   channel,
		out:       make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) SessionID() string { return c.sessionID }
func (c *RuntimeClient) Channel() string   { return c.channel }

func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return errors.New("client closed")
	}
}

// Close is idempotent. The out channel is never closed so a concurrent Send
// can at worst hit the cancelled context, not a closed channel.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
