package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
	"github.com/Aleksey-Sartakov/messenger/pkg/logging"
)

type ISessionService interface {
	// HandleConnect registers one more open presence connection for the user.
	HandleConnect(ctx context.Context, userID int64) error
	// HandleDisconnect releases it again; the user goes offline once the
	// last connection is gone.
	HandleDisconnect(ctx context.Context, userID int64) error
	// HandleMessage processes one inbound payload of a messaging-mode
	// connection. On failure it returns the error echo that must go back to
	// the originating client only.
	HandleMessage(ctx context.Context, senderID int64, raw []byte) (errorEcho []byte, err error)
}

// SessionService bridges connection lifecycles to presence tracking and the
// message pipeline.
type SessionService struct {
	presence contracts.PresenceTracker
	messages IMessageService
	log      *slog.Logger
}

func NewSessionService(
	log *slog.Logger,
	presence contracts.PresenceTracker,
	messages IMessageService,
) *SessionService {
	return &SessionService{
		log:      log,
		presence: presence,
		messages: messages,
	}
}

func (s *SessionService) HandleConnect(ctx context.Context, userID int64) error {
	if err := s.presence.MarkOnline(ctx, userID); err != nil {
		s.log.ErrorContext(ctx, "session - handle connect - mark online failed",
			logging.User(userID), logging.Err(err))
		return err
	}
	s.log.InfoContext(ctx, "session - handle connect - mark online success", logging.User(userID))
	return nil
}

func (s *SessionService) HandleDisconnect(ctx context.Context, userID int64) error {
	if err := s.presence.MarkOffline(ctx, userID); err != nil {
		s.log.ErrorContext(ctx, "session - handle disconnect - mark offline failed",
			logging.User(userID), logging.Err(err))
		return err
	}
	s.log.InfoContext(ctx, "session - handle disconnect - mark offline success", logging.User(userID))
	return nil
}

func (s *SessionService) HandleMessage(
	ctx context.Context,
	senderID int64,
	raw []byte,
) ([]byte, error) {
	var in domain.MessageCreate
	if err := json.Unmarshal(raw, &in); err != nil {
		s.log.ErrorContext(ctx, "session - handle message - wrong format", logging.Sender(senderID))
		return echo(in), domain.ErrInvalidPayload
	}
	if _, err := s.messages.Send(ctx, senderID, in); err != nil {
		// The failed payload goes back to the sender only; nothing was
		// published.
		return echo(in), err
	}
	return nil, nil
}

func echo(in domain.MessageCreate) []byte {
	raw, _ := json.Marshal(domain.MessageEcho{
		RecipientID: in.RecipientID,
		TextContent: in.TextContent,
		Status:      domain.StatusError,
	})
	return raw
}
