package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/metrics"
	"github.com/Aleksey-Sartakov/messenger/pkg/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messenger-services")

type IMessageService interface {
	// Send runs the full pipeline for one inbound message: validate,
	// persist, update both cache directions, publish on the conversation
	// channel, and trigger the external notifier when the recipient is
	// offline. The returned projection carries the store-assigned id.
	Send(ctx context.Context, senderID int64, in domain.MessageCreate) (domain.MessageRead, error)
}

type MessageService struct {
	repo      domain.MessageRepository
	cache     contracts.MessageCache
	pubsub    contracts.PubSub
	presence  contracts.PresenceTracker
	notifier  contracts.Notifier
	txManager ITxManager
	log       *slog.Logger
}

func NewMessageService(
	log *slog.Logger,
	repo domain.MessageRepository,
	cache contracts.MessageCache,
	pubsub contracts.PubSub,
	presence contracts.PresenceTracker,
	notifier contracts.Notifier,
	txManager ITxManager,
) *MessageService {
	return &MessageService{
		log:       log,
		repo:      repo,
		cache:     cache,
		pubsub:    pubsub,
		presence:  presence,
		notifier:  notifier,
		txManager: txManager,
	}
}

func (s *MessageService) Send(
	ctx context.Context,
	senderID int64,
	in domain.MessageCreate,
) (domain.MessageRead, error) {
	ctx, span := tracer.Start(ctx, "MessageService.Send", trace.WithAttributes(
		attribute.Int64("sender_id", senderID),
		attribute.Int64("recipient_id", in.RecipientID),
	))
	defer span.End()
	if err := validate(senderID, in); err != nil {
		span.RecordError(err)
		return domain.MessageRead{}, err
	}

	// Persistence first: a subscriber must never observe a message that is
	// not durable yet.
	var msg *domain.Message
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var txErr error
		msg, txErr = s.repo.Append(txCtx, senderID, in.RecipientID, in.TextContent)
		return txErr
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		s.log.ErrorContext(ctx, "messages - send - append failed",
			logging.Sender(senderID), logging.Recipient(in.RecipientID), logging.Err(err))
		return domain.MessageRead{}, err
	}
	metrics.MessagesSent.Inc()
	s.log.InfoContext(ctx, "messages - send - append success",
		logging.MessageID(msg.ID), logging.Sender(msg.SenderID), logging.Recipient(msg.RecipientID))

	projection := domain.NewMessageRead(msg)

	// Both directions' windows, when they exist. The sender's entry gets a
	// fresh TTL, the recipient's keeps its remaining one.
	if err := s.cache.Append(ctx, msg.SenderID, msg.RecipientID, projection, true); err != nil {
		s.log.WarnContext(ctx, "messages - send - sender cache append failed",
			logging.MessageID(msg.ID), logging.Err(err))
	}
	if err := s.cache.Append(ctx, msg.RecipientID, msg.SenderID, projection, false); err != nil {
		s.log.WarnContext(ctx, "messages - send - recipient cache append failed",
			logging.MessageID(msg.ID), logging.Err(err))
	}

	// Fan-out. The message is durable by now, so a broker failure degrades
	// to "next page load recovers it" and never rolls anything back.
	out := projection
	out.Status = domain.StatusOK
	raw, _ := json.Marshal(out)
	channel := domain.NewConversationKey(msg.SenderID, msg.RecipientID).Channel()
	if err := s.pubsub.Publish(ctx, channel, raw); err != nil {
		span.RecordError(err)
		s.log.WarnContext(ctx, "messages - send - publish failed",
			logging.MessageID(msg.ID), logging.Channel(channel), logging.Err(err))
	} else {
		metrics.FanoutPublishes.Inc()
	}

	s.notifyIfOffline(ctx, msg.RecipientID, msg.SenderID)
	return projection, nil
}

func (s *MessageService) notifyIfOffline(ctx context.Context, recipientID, senderID int64) {
	online, err := s.presence.IsOnline(ctx, recipientID)
	if err != nil {
		// Presence unavailable: skip the notification rather than spam a
		// possibly online user.
		s.log.WarnContext(ctx, "messages - notify if offline - presence check failed",
			logging.Recipient(recipientID), logging.Err(err))
		return
	}
	if online {
		return
	}
	// Fire-and-forget, detached from the request lifetime.
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		notifyCtx, cancel := context.WithTimeout(notifyCtx, 10*time.Second)
		defer cancel()
		if err := s.notifier.Notify(notifyCtx, recipientID, senderID); err != nil {
			s.log.WarnContext(notifyCtx, "messages - notify if offline - notify failed",
				logging.Recipient(recipientID), logging.Sender(senderID), logging.Err(err))
			return
		}
		metrics.NotificationsSent.Inc()
	}()
}

func validate(senderID int64, in domain.MessageCreate) error {
	if in.RecipientID <= 0 {
		return domain.ErrInvalidUserID
	}
	if in.RecipientID == senderID {
		return domain.ErrSelfConversation
	}
	if strings.TrimSpace(in.TextContent) == "" {
		return domain.ErrEmptyMessage
	}
	return nil
}
