package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/Aleksey-Sartakov/messenger/pkg/logging"
)

// type for context keys
type loggerKeyType struct{}

var LoggerKey = loggerKeyType{}

// RequestLogger creates a middleware that logs requests and injects the logger.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			// child logger with request details
			reqLog := log.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)
			if span := trace.SpanFromContext(r.Context()); span.SpanContext().IsValid() {
				reqLog = reqLog.With(logging.TraceID(span.SpanContext().TraceID().String()))
			}

			// inject this new logger into the context
			ctx := context.WithValue(r.Context(), LoggerKey, reqLog)

			reqLog.Info("request started")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
