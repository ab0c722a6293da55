package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/app/registry"
	"github.com/Aleksey-Sartakov/messenger/internal/app/server"
	"github.com/Aleksey-Sartakov/messenger/internal/config"
	"github.com/Aleksey-Sartakov/messenger/internal/core/services"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/logger"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/metrics"
	"github.com/Aleksey-Sartakov/messenger/internal/platform/telemetry"
	"github.com/Aleksey-Sartakov/messenger/internal/plugins/notifier"
	"github.com/Aleksey-Sartakov/messenger/internal/plugins/postgres"
	redisPlugin "github.com/Aleksey-Sartakov/messenger/internal/plugins/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	metrics.Register()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	defer pdb.Close()
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	msgRepo := postgres.NewMessageRepo(pdb)
	userRepo := postgres.NewUserRepo(pdb)
	msgCache := redisPlugin.NewRedisMessageCache(rdb, cfg.Cache.TTL, cfg.Cache.MaxWindow)
	presence := redisPlugin.NewRedisPresenceTracker(rdb)
	pubsub := redisPlugin.NewRedisPubSub(rdb)
	notify := notifier.NewHTTPNotifier(*cfg.Notifier)

	// Core services
	hub := registry.NewRegistry()
	metrics.RegisterOpenSessions(func() float64 { return float64(hub.Len()) })
	txManager := services.NewTxManager(pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	msgSvc := services.NewMessageService(log, msgRepo, msgCache, pubsub, presence, notify, txManager)
	historySvc := services.NewHistoryService(log, msgCache, msgRepo, userRepo, txManager)
	sessionSvc := services.NewSessionService(log, presence, msgSvc)

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, tokenSvc, historySvc, sessionSvc, pubsub, hub)
	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped with error", "err", err)
	}
}
