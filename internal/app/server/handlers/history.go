package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
	"github.com/Aleksey-Sartakov/messenger/internal/core/services"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/logger"
	"github.com/Aleksey-Sartakov/messenger/pkg/logging"
	"github.com/Aleksey-Sartakov/messenger/pkg/middleware"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 100
)

type HistoryHandler struct {
	history services.IHistoryService
}

func NewHistoryHandler(history services.IHistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// GetMessages serves one page of the dialog between the authenticated user
// and the counterpart from the path, newest page at offset 0, ordered by
// ascending id.
func (h *HistoryHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	otherID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || otherID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid counterpart id")
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.history.GetConversation(r.Context(), userID, otherID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user with the requested id does not exist")
		case errors.Is(err, domain.ErrInvalidUserID):
			writeError(w, http.StatusBadRequest, "invalid counterpart id")
		default:
			log.ErrorContext(r.Context(), "history handler - get messages failed",
				logging.User(userID), slog.Int64("other_id", otherID), logging.Err(err))
			writeError(w, http.StatusInternalServerError, "unexpected server error")
		}
		return
	}
	if messages == nil {
		messages = []domain.MessageRead{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(messages)
}

func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxHistoryLimit {
			return 0, 0, errors.New("limit must be between 1 and 100")
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be non-negative")
		}
	}
	return limit, offset, nil
}

func writeError(w http.ResponseWriter, code int, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  domain.StatusError,
		"details": details,
	})
}
