package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeRepo holds the full authoritative history in ascending id order.
type fakeRepo struct {
	mu        sync.Mutex
	history   []domain.Message
	nextID    int64
	appendErr error
	queries   []queryCall
}

type queryCall struct {
	limit  int
	offset int
}

func newFakeRepo(messages ...domain.Message) *fakeRepo {
	r := &fakeRepo{history: messages, nextID: 1}
	if n := len(messages); n > 0 {
		r.nextID = messages[n-1].ID + 1
	}
	return r
}

func (r *fakeRepo) Append(ctx context.Context, senderID, recipientID int64, text string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return nil, r.appendErr
	}
	msg := domain.Message{
		ID:          r.nextID,
		SenderID:    senderID,
		RecipientID: recipientID,
		TextContent: text,
		CreatedAt:   time.Now(),
	}
	r.nextID++
	r.history = append(r.history, msg)
	return &msg, nil
}

func (r *fakeRepo) QueryRange(ctx context.Context, firstUserID, secondUserID int64, limit, offset int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, queryCall{limit: limit, offset: offset})
	n := len(r.history)
	hi := n - offset
	if hi <= 0 {
		return nil, nil
	}
	lo := hi - limit
	if lo < 0 {
		lo = 0
	}
	page := make([]domain.Message, hi-lo)
	copy(page, r.history[lo:hi])
	return page, nil
}

type appendCall struct {
	askerID    int64
	otherID    int64
	refreshTTL bool
}

type fakeCache struct {
	mu        sync.Mutex
	windows   map[string][]domain.MessageRead
	readErr   error
	writeErr  error
	refreshes int
	appends   []appendCall
	writes    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{windows: make(map[string][]domain.MessageRead)}
}

func cacheKey(askerID, otherID int64) string {
	return fmt.Sprintf("%d:%d", askerID, otherID)
}

func (c *fakeCache) ReadWindow(ctx context.Context, askerID, otherID int64) ([]domain.MessageRead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	window, ok := c.windows[cacheKey(askerID, otherID)]
	if !ok {
		return nil, nil
	}
	out := make([]domain.MessageRead, len(window))
	copy(out, window)
	return out, nil
}

func (c *fakeCache) WriteWindow(ctx context.Context, askerID, otherID int64, messages []domain.MessageRead) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	window := make([]domain.MessageRead, len(messages))
	copy(window, messages)
	c.windows[cacheKey(askerID, otherID)] = window
	c.writes++
	return nil
}

func (c *fakeCache) Append(ctx context.Context, askerID, otherID int64, message domain.MessageRead, refreshTTL bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appends = append(c.appends, appendCall{askerID: askerID, otherID: otherID, refreshTTL: refreshTTL})
	key := cacheKey(askerID, otherID)
	if window, ok := c.windows[key]; ok {
		c.windows[key] = append(window, message)
	}
	return nil
}

func (c *fakeCache) RefreshTTL(ctx context.Context, askerID, otherID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	return nil
}

func (c *fakeCache) window(askerID, otherID int64) []domain.MessageRead {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windows[cacheKey(askerID, otherID)]
}

type fakeUsers struct {
	missing map[int64]bool
}

func (u *fakeUsers) Exists(ctx context.Context, userID int64) (bool, error) {
	return !u.missing[userID], nil
}

type pubCall struct {
	channel string
	payload []byte
}

type fakePubSub struct {
	mu         sync.Mutex
	published  []pubCall
	publishErr error
}

func (p *fakePubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.published = append(p.published, pubCall{channel: channel, payload: payload})
	return nil
}

func (p *fakePubSub) Subscribe(ctx context.Context, channel string) (contracts.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (p *fakePubSub) calls() []pubCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pubCall, len(p.published))
	copy(out, p.published)
	return out
}

type fakePresence struct {
	mu       sync.Mutex
	counts   map[int64]int
	checkErr error
}

func newFakePresence() *fakePresence {
	return &fakePresence{counts: make(map[int64]int)}
}

func (p *fakePresence) MarkOnline(ctx context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[userID]++
	return nil
}

func (p *fakePresence) MarkOffline(ctx context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[userID]--
	if p.counts[userID] <= 0 {
		delete(p.counts, userID)
	}
	return nil
}

func (p *fakePresence) IsOnline(ctx context.Context, userID int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkErr != nil {
		return false, p.checkErr
	}
	_, ok := p.counts[userID]
	return ok, nil
}

type notifyCall struct {
	recipientID int64
	senderID    int64
}

type fakeNotifier struct {
	calls chan notifyCall
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan notifyCall, 8)}
}

func (n *fakeNotifier) Notify(ctx context.Context, recipientID, senderID int64) error {
	n.calls <- notifyCall{recipientID: recipientID, senderID: senderID}
	return nil
}
