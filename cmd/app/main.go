package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-hub/internal/auth"
	"estate-hub/internal/cache"
	"estate-hub/internal/config"
	"estate-hub/internal/httpserver"
	"estate-hub/internal/kvstore"
	"estate-hub/internal/leads"
	"estate-hub/internal/logging"
	"estate-hub/internal/metrics"
	"estate-hub/internal/notify"
	"estate-hub/internal/store"
	"estate-hub/internal/wa"
	"estate-hub/migrations"
	"estate-hub/seed"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting estate-hub", "env", cfg.AppEnv, "backend", cfg.StoreBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	kv, err := openKV(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init local store: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn("failed closing local store", "error", err)
		}
	}()

	listings := store.New(kv, seed.Dataset, logger, metricRegistry)
	if err := listings.Load(ctx); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	authService := auth.NewService(kv, logger, metricRegistry)
	leadService := leads.NewService(kv, logger, metricRegistry)

	var redisClient *cache.Redis
	if cfg.RedisAddr != "" {
		redisClient = cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", "error", err)
		}
	}

	notifyClient := notify.New(notify.Config{
		Endpoint:   cfg.NotifyEndpoint,
		AccessKey:  cfg.NotifyAccessKey,
		AdminEmail: cfg.AdminEmail,
		Timeout:    cfg.NotifyTimeout,
	}, logger, metricRegistry)

	var waClient *wa.Client
	if cfg.WhatsAppEnabled {
		waClient, err = wa.New(ctx, wa.Config{
			StorePath: cfg.WhatsAppStorePath,
			LogLevel:  cfg.WhatsAppLogLevel,
			AdminJID:  cfg.WhatsAppAdminJID,
			Metrics:   metricRegistry,
		}, logger)
		if err != nil {
			return fmt.Errorf("init whatsapp client: %w", err)
		}
		defer waClient.Close()
		if err := waClient.Start(ctx); err != nil {
			logger.Error("whatsapp client failed to start, alerts disabled", "error", err)
			waClient = nil
		}
	}

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Store:    listings,
		Auth:     authService,
		Leads:    leadService,
		Notify:   notifyClient,
		WhatsApp: waClient,
		Cache:    redisClient,
		KV:       kv,
		CacheTTL: cfg.CacheTTL,
	}, cfg.PublicBasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

func openKV(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kvstore.Store, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		return kvstore.NewSQLite(ctx, cfg.StorePath, migrations.Files, logger)
	case "postgres":
		return kvstore.NewPostgres(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, migrations.Files, logger)
	default:
		return kvstore.NewBolt(cfg.StorePath, logger)
	}
}
