package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
)

type sendEnv struct {
	repo     *fakeRepo
	cache    *fakeCache
	pubsub   *fakePubSub
	presence *fakePresence
	notifier *fakeNotifier
	svc      *MessageService
}

func newSendEnv() *sendEnv {
	env := &sendEnv{
		repo:     newFakeRepo(),
		cache:    newFakeCache(),
		pubsub:   &fakePubSub{},
		presence: newFakePresence(),
		notifier: newFakeNotifier(),
	}
	env.svc = NewMessageService(
		testLogger(), env.repo, env.cache, env.pubsub, env.presence, env.notifier, passTx{},
	)
	return env
}

func (e *sendEnv) expectNoNotify(t *testing.T) {
	t.Helper()
	select {
	case call := <-e.notifier.calls:
		t.Fatalf("unexpected notification: %+v", call)
	case <-time.After(50 * time.Millisecond):
	}
}

func (e *sendEnv) expectNotify(t *testing.T, recipientID, senderID int64) {
	t.Helper()
	select {
	case call := <-e.notifier.calls:
		if call.recipientID != recipientID || call.senderID != senderID {
			t.Fatalf("notified (%d, %d), want (%d, %d)",
				call.recipientID, call.senderID, recipientID, senderID)
		}
	case <-time.After(time.Second):
		t.Fatal("notifier was never called")
	}
}

func TestSendPersistsCachesAndPublishes(t *testing.T) {
	env := newSendEnv()
	env.presence.MarkOnline(context.Background(), 2)
	// Both participants have materialized windows.
	env.cache.windows[cacheKey(1, 2)] = nil
	env.cache.windows[cacheKey(2, 1)] = nil

	got, err := env.svc.Send(context.Background(), 1, domain.MessageCreate{
		RecipientID: 2,
		TextContent: "hi there",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.ID == 0 {
		t.Fatal("projection has no store-assigned id")
	}
	if got.SenderID != 1 || got.RecipientID != 2 || got.TextContent != "hi there" {
		t.Fatalf("unexpected projection: %+v", got)
	}
	if got.Status != "" {
		t.Fatalf("returned projection carries status %q", got.Status)
	}

	if len(env.repo.history) != 1 {
		t.Fatalf("store holds %d messages, want 1", len(env.repo.history))
	}
	assertIDs(t, env.cache.window(1, 2), got.ID)
	assertIDs(t, env.cache.window(2, 1), got.ID)

	// Sender's entry gets a fresh TTL, recipient's keeps its remaining one.
	if len(env.cache.appends) != 2 {
		t.Fatalf("cache appended %d times, want 2", len(env.cache.appends))
	}
	for _, call := range env.cache.appends {
		wantRefresh := call.askerID == 1
		if call.refreshTTL != wantRefresh {
			t.Fatalf("append for asker %d has refreshTTL=%v", call.askerID, call.refreshTTL)
		}
	}

	published := env.pubsub.calls()
	if len(published) != 1 {
		t.Fatalf("published %d payloads, want 1", len(published))
	}
	if published[0].channel != "chat:1:2" {
		t.Fatalf("published on %q, want chat:1:2", published[0].channel)
	}
	var relayed domain.MessageRead
	if err := json.Unmarshal(published[0].payload, &relayed); err != nil {
		t.Fatalf("unmarshal published payload: %v", err)
	}
	if relayed.Status != domain.StatusOK {
		t.Fatalf("relayed status %q, want %q", relayed.Status, domain.StatusOK)
	}
	if relayed.ID != got.ID || relayed.TextContent != "hi there" {
		t.Fatalf("relayed payload diverged: %+v", relayed)
	}

	env.expectNoNotify(t)
}

func TestSendLeavesAbsentCacheEntriesAbsent(t *testing.T) {
	env := newSendEnv()
	env.presence.MarkOnline(context.Background(), 2)

	if _, err := env.svc.Send(context.Background(), 1, domain.MessageCreate{
		RecipientID: 2,
		TextContent: "hi",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(env.cache.windows) != 0 {
		t.Fatalf("append materialized cache entries: %v", env.cache.windows)
	}
}

func TestSendStoreFailureAbortsPipeline(t *testing.T) {
	env := newSendEnv()
	storeErr := errors.New("deadlock detected")
	env.repo.appendErr = storeErr
	env.cache.windows[cacheKey(1, 2)] = nil

	_, err := env.svc.Send(context.Background(), 1, domain.MessageCreate{
		RecipientID: 2,
		TextContent: "hi",
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("got %v, want the store error", err)
	}
	if len(env.cache.appends) != 0 {
		t.Fatal("cache touched after a failed persist")
	}
	if len(env.pubsub.calls()) != 0 {
		t.Fatal("payload published after a failed persist")
	}
	env.expectNoNotify(t)
}

func TestSendNotifiesOfflineRecipientOnce(t *testing.T) {
	env := newSendEnv()

	if _, err := env.svc.Send(context.Background(), 1, domain.MessageCreate{
		RecipientID: 2,
		TextContent: "wake up",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	env.expectNotify(t, 2, 1)
	env.expectNoNotify(t)
}

func TestSendSkipsNotifyOnPresenceFailure(t *testing.T) {
	env := newSendEnv()
	env.presence.checkErr = errors.New("connection refused")

	if _, err := env.svc.Send(context.Background(), 1, domain.MessageCreate{
		RecipientID: 2,
		TextContent: "hi",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	env.expectNoNotify(t)
}

func TestSendSurvivesBrokerFailure(t *testing.T) {
	env := newSendEnv()
	env.presence.MarkOnline(context.Background(), 2)
	env.pubsub.publishErr = errors.New("broker down")

	got, err := env.svc.Send(context.Background(), 1, domain.MessageCreate{
		RecipientID: 2,
		TextContent: "hi",
	})
	if err != nil {
		t.Fatalf("Send should not fail on a broker error: %v", err)
	}
	if got.ID == 0 {
		t.Fatal("message was not persisted")
	}
}

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name    string
		sender  int64
		in      domain.MessageCreate
		wantErr error
	}{
		{
			name:    "zero recipient",
			sender:  1,
			in:      domain.MessageCreate{RecipientID: 0, TextContent: "hi"},
			wantErr: domain.ErrInvalidUserID,
		},
		{
			name:    "negative recipient",
			sender:  1,
			in:      domain.MessageCreate{RecipientID: -5, TextContent: "hi"},
			wantErr: domain.ErrInvalidUserID,
		},
		{
			name:    "self conversation",
			sender:  7,
			in:      domain.MessageCreate{RecipientID: 7, TextContent: "hi"},
			wantErr: domain.ErrSelfConversation,
		},
		{
			name:    "blank text",
			sender:  1,
			in:      domain.MessageCreate{RecipientID: 2, TextContent: "   \t"},
			wantErr: domain.ErrEmptyMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newSendEnv()
			_, err := env.svc.Send(context.Background(), tt.sender, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if len(env.repo.history) != 0 {
				t.Fatal("invalid message reached the store")
			}
		})
	}
}
