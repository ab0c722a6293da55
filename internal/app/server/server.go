package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/app/server/handlers"
	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
	"github.com/Aleksey-Sartakov/messenger/internal/core/services"
	"github.com/Aleksey-Sartakov/messenger/pkg/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	mux            *http.ServeMux
	log            *slog.Logger
	name           string
	addr           string
	historyHandler *handlers.HistoryHandler
	wsHandler      *handlers.WSHandler
	tokenSvc       *services.TokenService
}

func NewServer(
	log *slog.Logger,
	name, addr string,
	tokenSvc *services.TokenService,
	historySvc services.IHistoryService,
	sessionSvc services.ISessionService,
	pubsub contracts.PubSub,
	hub contracts.Registry,
) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		log:            log,
		name:           name,
		addr:           addr,
		historyHandler: handlers.NewHistoryHandler(historySvc),
		wsHandler:      handlers.NewWSHandler(hub, pubsub, sessionSvc),
		tokenSvc:       tokenSvc,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)
	logging := middleware.RequestLogger(s.log)
	tracing := middleware.TracerMiddleware(s.name)
	protected := func(h http.Handler) http.Handler {
		return tracing(logging(auth(h)))
	}

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.Handle("GET /messenger/messages/{id}", protected(http.HandlerFunc(s.historyHandler.GetMessages)))
	s.mux.Handle("/messenger/ws", protected(http.HandlerFunc(s.wsHandler.Handler)))
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket sessions stay open indefinitely.
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("server - start - listening", "addr", s.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
