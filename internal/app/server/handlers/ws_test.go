package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/app/registry"
	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
	"github.com/Aleksey-Sartakov/messenger/pkg/middleware"

	"github.com/gorilla/websocket"
)

type fakeSubscription struct {
	out        chan []byte
	hub        *registry.Registry
	mu         sync.Mutex
	closed     bool
	lenAtClose int
}

func (s *fakeSubscription) C() <-chan []byte { return s.out }

// Close records how many sessions were still registered when teardown
// reached the broker side.
func (s *fakeSubscription) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.lenAtClose = s.hub.Len()
		close(s.out)
	}
	return nil
}

func (s *fakeSubscription) state() (closed bool, lenAtClose int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed, s.lenAtClose
}

type fakeBroker struct {
	sub     *fakeSubscription
	mu      sync.Mutex
	channel string
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (contracts.Subscription, error) {
	b.mu.Lock()
	b.channel = channel
	b.mu.Unlock()
	return b.sub, nil
}

func (b *fakeBroker) subscribedChannel() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channel
}

type fakeSessionService struct {
	inbound chan []byte
}

func (f *fakeSessionService) HandleConnect(ctx context.Context, userID int64) error { return nil }

func (f *fakeSessionService) HandleDisconnect(ctx context.Context, userID int64) error { return nil }

func (f *fakeSessionService) HandleMessage(ctx context.Context, senderID int64, raw []byte) ([]byte, error) {
	f.inbound <- raw
	return nil, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMessagingSessionFanout(t *testing.T) {
	hub := registry.NewRegistry()
	sub := &fakeSubscription{out: make(chan []byte, 8), hub: hub}
	broker := &fakeBroker{sub: sub}
	sessions := &fakeSessionService{inbound: make(chan []byte, 8)}
	handler := NewWSHandler(hub, broker, sessions)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, int64(1))
		handler.Handler(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?recipient_id=2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "session registration", func() bool { return hub.Len() == 1 })
	if got := broker.subscribedChannel(); got != "chat:1:2" {
		t.Fatalf("subscribed to %q, want chat:1:2", got)
	}

	// A broker payload reaches the client byte for byte.
	payload := []byte(`{"id":7,"sender_id":2,"recipient_id":1,"text_content":"hi","status":"OK"}`)
	sub.out <- payload
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read forwarded payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("forwarded %s, want %s", got, payload)
	}

	// An inbound frame reaches the send pipeline.
	inbound := []byte(`{"recipient_id":2,"text_content":"hey"}`)
	if err := conn.WriteMessage(websocket.TextMessage, inbound); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case raw := <-sessions.inbound:
		if !bytes.Equal(raw, inbound) {
			t.Fatalf("pipeline received %s, want %s", raw, inbound)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbound frame never reached the pipeline")
	}

	conn.Close()
	waitFor(t, "session teardown", func() bool {
		closed, _ := sub.state()
		return closed && hub.Len() == 0
	})
	// The broker subscription must be released before the session leaves
	// the registry, so nothing can be delivered into a dead session.
	if _, lenAtClose := sub.state(); lenAtClose != 1 {
		t.Fatalf("subscription closed with %d registered sessions, want 1", lenAtClose)
	}
}

func TestPresenceSessionOnlyTracksPresence(t *testing.T) {
	hub := registry.NewRegistry()
	broker := &fakeBroker{sub: &fakeSubscription{out: make(chan []byte), hub: hub}}

	connects := make(chan int64, 1)
	disconnects := make(chan int64, 1)
	sessions := &presenceRecorder{connects: connects, disconnects: disconnects}
	handler := NewWSHandler(hub, broker, sessions)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, int64(9))
		handler.Handler(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session_marker=1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case id := <-connects:
		if id != 9 {
			t.Fatalf("connected user %d, want 9", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("presence connect never registered")
	}
	if broker.subscribedChannel() != "" {
		t.Fatal("presence connection subscribed to the broker")
	}
	if hub.Len() != 0 {
		t.Fatal("presence connection entered the session registry")
	}

	conn.Close()
	select {
	case id := <-disconnects:
		if id != 9 {
			t.Fatalf("disconnected user %d, want 9", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("presence disconnect never registered")
	}
}

type presenceRecorder struct {
	connects    chan int64
	disconnects chan int64
}

func (p *presenceRecorder) HandleConnect(ctx context.Context, userID int64) error {
	p.connects <- userID
	return nil
}

func (p *presenceRecorder) HandleDisconnect(ctx context.Context, userID int64) error {
	p.disconnects <- userID
	return nil
}

func (p *presenceRecorder) HandleMessage(ctx context.Context, senderID int64, raw []byte) ([]byte, error) {
	return nil, nil
}
