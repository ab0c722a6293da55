package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/app/server/ws"
	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
	"github.com/Aleksey-Sartakov/messenger/internal/core/services"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/logger"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/metrics"
	"github.com/Aleksey-Sartakov/messenger/pkg/logging"
	"github.com/Aleksey-Sartakov/messenger/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	hub      contracts.Registry
	pubsub   contracts.PubSub
	sessions services.ISessionService
}

func NewWSHandler(
	hub contracts.Registry,
	pubsub contracts.PubSub,
	sessions services.ISessionService,
) *WSHandler {
	return &WSHandler{
		hub:      hub,
		pubsub:   pubsub,
		sessions: sessions,
	}
}

// Handler upgrades the connection and runs one session until the client
// disconnects. The mode is fixed for the whole session: a presence
// connection only drives the online counter, a messaging connection is
// bound to one conversation pair and bridges client payloads to the send
// pipeline and fan-out payloads back to the client.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.Int64("user.id", userID))

	presenceMode := r.URL.Query().Get("session_marker") == "1" || r.URL.Query().Get("session_marker") == "true"
	recipientID, _ := strconv.ParseInt(r.URL.Query().Get("recipient_id"), 10, 64)
	if !presenceMode && recipientID <= 0 {
		http.Error(w, "recipient_id is required for messaging connections", http.StatusBadRequest)
		return
	}

	// The session outlives the HTTP request context of the upgrade.
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", "err", err)
		return
	}
	socket := ws.NewWebSocket(ctx, conn)
	defer socket.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})

	if presenceMode {
		s.servePresence(ctx, log, socket, userID)
		return
	}
	s.serveMessaging(ctx, log, socket, userID, recipientID)
}

// servePresence only counts the connection. Multiple tabs of one user each
// hold their own presence connection; the tracker sums them.
func (s *WSHandler) servePresence(
	ctx context.Context,
	log *slog.Logger,
	socket *ws.WebSocket,
	userID int64,
) {
	if err := s.sessions.HandleConnect(ctx, userID); err != nil {
		return
	}
	metrics.PresenceConnections.Inc()
	defer func() {
		metrics.PresenceConnections.Dec()
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer closeCancel()
		_ = s.sessions.HandleDisconnect(closeCtx, userID)
	}()
	// No chat traffic on presence connections; drain until close.
	socket.ReadLoop(func([]byte) {})
}

func (s *WSHandler) serveMessaging(
	ctx context.Context,
	log *slog.Logger,
	socket *ws.WebSocket,
	userID, recipientID int64,
) {
	channel := domain.NewConversationKey(userID, recipientID).Channel()
	sub, err := s.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.ErrorContext(ctx, "ws handler - serve messaging - subscribe failed",
			logging.Channel(channel), logging.User(userID), logging.Err(err))
		return
	}
	client := ws.NewClient(ctx, socket, uuid.NewString(), channel)
	s.hub.Add(client)
	log.InfoContext(ctx, "ws handler - serve messaging - session established",
		logging.Channel(channel), logging.User(userID), logging.Session(client.SessionID()))

	// Teardown order: unsubscribe from the broker first, then drop the
	// local bookkeeping, then close the client. Defers run bottom-up.
	defer client.Close()
	defer s.hub.Remove(client)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer closeCancel()
		if err := sub.Close(closeCtx); err != nil {
			log.WarnContext(closeCtx, "ws handler - serve messaging - unsubscribe failed",
				logging.Channel(channel), logging.Err(err))
		}
	}()

	// Fan-out forwarding task: every payload published on the conversation
	// channel goes to this client verbatim. Ends when the subscription is
	// closed during teardown.
	go func() {
		for payload := range sub.C() {
			if err := client.Send(ctx, payload); err != nil {
				return
			}
			metrics.FanoutDeliveries.Inc()
		}
	}()

	socket.ReadLoop(func(data []byte) {
		echo, err := s.sessions.HandleMessage(ctx, userID, data)
		if err != nil {
			log.WarnContext(ctx, "ws handler - serve messaging - message rejected",
				logging.User(userID), logging.Err(err))
			if echo != nil {
				_ = client.Send(ctx, echo)
			}
		}
	})
}
