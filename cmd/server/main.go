package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"pulseboard.app/ingest/common/id"
	"pulseboard.app/ingest/common/logger"
	"pulseboard.app/ingest/common/otel"
	"pulseboard.app/ingest/core/config"
	"pulseboard.app/ingest/core/db"
	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/http/router"
	"pulseboard.app/ingest/internal/queue"
	"pulseboard.app/ingest/internal/rawstore"
	"pulseboard.app/ingest/internal/service"
	"pulseboard.app/ingest/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)
	slog.Info("ingest starting", "env", cfg.Env)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.Error("failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	raw := rawstore.New(database.Pool())
	if err := raw.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure raw event schema", "error", err)
		os.Exit(1)
	}
	slog.Info("postgres connected")

	arango, err := store.NewClient(ctx, store.Config{
		URL:      cfg.ArangoDB.URL,
		Username: cfg.ArangoDB.Username,
		Password: cfg.ArangoDB.Password,
		Database: cfg.ArangoDB.Database,
	})
	if err != nil {
		slog.Error("failed to connect to arangodb", "error", err)
		os.Exit(1)
	}
	if err := arango.EnsureDatabase(ctx); err != nil {
		slog.Error("failed to ensure arangodb database", "error", err)
		os.Exit(1)
	}
	if err := arango.EnsureCollections(ctx); err != nil {
		slog.Error("failed to ensure arangodb collections", "error", err)
		os.Exit(1)
	}
	slog.Info("arangodb connected", "database", cfg.ArangoDB.Database)

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.Info("redis connected", "stream", cfg.Redis.ActivityStream)

	producer := queue.NewRedisProducer(redisClient, cfg.Redis.ActivityStream, slog.Default())
	defer producer.Close()

	stores := store.NewStores(arango.Database(), cfg.Webhook.MirrorMaxBytes)
	services := service.NewServices(stores, raw, adapter.NewRegistry(), producer, service.Config{
		FilterTTL:     cfg.Cache.FilterTTL,
		IdentityTTL:   cfg.Cache.IdentityTTL,
		ReplayWorkers: cfg.Replay.Workers,
	}, nil, slog.Default())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.OTel.Enabled() {
		engine.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}

	codec := clientid.NewCodec(cfg.Webhook.ClientIDKey)
	router.SetupRoutes(engine, services, codec, router.RouterConfig{
		GitHubSignatureSecret: cfg.Webhook.GitHubSignatureSecret,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		slog.Info("ingest http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ingest http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}
	slog.Info("shutdown complete")
}
