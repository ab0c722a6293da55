package services

import (
	"context"
	"log/slog"

	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/metrics"
	"github.com/Aleksey-Sartakov/messenger/pkg/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type IHistoryService interface {
	// GetConversation returns one page of the dialog between userID and
	// otherID, offset counted from the most recent message, result ordered
	// by ascending id. Served from the cache window when possible, merged
	// with the store on partial hits.
	GetConversation(ctx context.Context, userID, otherID int64, limit, offset int) ([]domain.MessageRead, error)
}

type HistoryService struct {
	cache     contracts.MessageCache
	repo      domain.MessageRepository
	users     domain.UserRepository
	txManager ITxManager
	log       *slog.Logger
}

func NewHistoryService(
	log *slog.Logger,
	cache contracts.MessageCache,
	repo domain.MessageRepository,
	users domain.UserRepository,
	txManager ITxManager,
) *HistoryService {
	return &HistoryService{
		log:       log,
		cache:     cache,
		repo:      repo,
		users:     users,
		txManager: txManager,
	}
}

// The cached window holds the last len(window) messages of the true history,
// ascending, newest last. An element at index i is offset n-1-i from the
// newest message, so the requested page [offset, offset+limit) maps to the
// slice [n-offset-limit, n-offset).
func (h *HistoryService) GetConversation(
	ctx context.Context,
	userID, otherID int64,
	limit, offset int,
) ([]domain.MessageRead, error) {
	ctx, span := tracer.Start(ctx, "HistoryService.GetConversation", trace.WithAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("other_id", otherID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	))
	defer span.End()
	if userID <= 0 || otherID <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	window, err := h.cache.ReadWindow(ctx, userID, otherID)
	if err != nil {
		// The cache is an optimization, never a correctness dependency.
		span.RecordError(err)
		h.log.WarnContext(ctx, "history - get conversation - cache read failed, bypassing cache",
			logging.User(userID), slog.Int64("other_id", otherID), logging.Err(err))
		metrics.CacheMisses.Inc()
		return h.queryStore(ctx, userID, otherID, limit, offset)
	}
	n := len(window)
	switch {
	case n >= offset+limit:
		// Full hit: the whole page is inside the cached window.
		metrics.CacheHits.Inc()
		if err := h.cache.RefreshTTL(ctx, userID, otherID); err != nil {
			h.log.WarnContext(ctx, "history - get conversation - ttl refresh failed",
				logging.User(userID), slog.Int64("other_id", otherID), logging.Err(err))
		}
		span.SetAttributes(attribute.Int("message_count", limit))
		return window[n-offset-limit : n-offset], nil

	case n > offset:
		// Partial hit: the tail of the page is cached, its older prefix is
		// not. Fetch the missing prefix from the store and extend the window.
		metrics.CacheHits.Inc()
		cached := window[:n-offset]
		older, err := h.queryStore(ctx, userID, otherID, limit-len(cached), n)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store read failed")
			return nil, err
		}
		if len(older) > 0 {
			merged := make([]domain.MessageRead, 0, len(older)+n)
			merged = append(merged, older...)
			merged = append(merged, window...)
			// Lost updates here are tolerable: the store stays authoritative.
			if err := h.cache.WriteWindow(ctx, userID, otherID, merged); err != nil {
				h.log.WarnContext(ctx, "history - get conversation - window extension failed",
					logging.User(userID), slog.Int64("other_id", otherID), logging.Err(err))
			}
		} else if err := h.cache.RefreshTTL(ctx, userID, otherID); err != nil {
			// The window already spans the whole history; a served read still
			// has to keep the entry alive.
			h.log.WarnContext(ctx, "history - get conversation - ttl refresh failed",
				logging.User(userID), slog.Int64("other_id", otherID), logging.Err(err))
		}
		page := make([]domain.MessageRead, 0, len(older)+len(cached))
		page = append(page, older...)
		page = append(page, cached...)
		span.SetAttributes(attribute.Int("message_count", len(page)))
		h.log.InfoContext(ctx, "history - get conversation - partial cache hit merged",
			logging.User(userID), slog.Int64("other_id", otherID), slog.Int("cached", len(cached)), slog.Int("fetched", len(older)))
		return page, nil

	default:
		// No overlap between the request and the cached window. Serving the
		// range from the store without touching the entry keeps the window
		// contiguous.
		metrics.CacheMisses.Inc()
		messages, err := h.queryStore(ctx, userID, otherID, limit, offset)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store read failed")
			return nil, err
		}
		if n == 0 && offset == 0 && len(messages) > 0 {
			// Empty cache and a request for the newest page: the fetched
			// slice is the true tail, safe to seed the window with.
			if err := h.cache.WriteWindow(ctx, userID, otherID, messages); err != nil {
				h.log.WarnContext(ctx, "history - get conversation - window seed failed",
					logging.User(userID), slog.Int64("other_id", otherID), logging.Err(err))
			}
		}
		span.SetAttributes(attribute.Int("message_count", len(messages)))
		return messages, nil
	}
}

func (h *HistoryService) queryStore(
	ctx context.Context,
	userID, otherID int64,
	limit, offset int,
) ([]domain.MessageRead, error) {
	var msgs []domain.Message
	if err := h.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var txErr error
		msgs, txErr = h.repo.QueryRange(txCtx, userID, otherID, limit, offset)
		return txErr
	}); err != nil {
		h.log.ErrorContext(ctx, "history - query store - query range failed",
			logging.User(userID), slog.Int64("other_id", otherID), logging.Err(err))
		return nil, err
	}
	if len(msgs) == 0 {
		// Distinguish "no history yet" from "no such counterpart".
		exists, err := h.users.Exists(ctx, otherID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrUserNotFound
		}
		return nil, nil
	}
	projections := make([]domain.MessageRead, 0, len(msgs))
	for i := range msgs {
		projections = append(projections, domain.NewMessageRead(&msgs[i]))
	}
	return projections, nil
}
