// Package main запускает HTTP-сервер магазина пряжи.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/yarnshop/internal/auth"
	"github.com/mmeshcher/yarnshop/internal/config"
	"github.com/mmeshcher/yarnshop/internal/docstore"
	"github.com/mmeshcher/yarnshop/internal/handler"
	"github.com/mmeshcher/yarnshop/internal/metrics"
	"github.com/mmeshcher/yarnshop/internal/middleware"
	"github.com/mmeshcher/yarnshop/internal/ratelimit"
	"github.com/mmeshcher/yarnshop/internal/repository"
	"github.com/mmeshcher/yarnshop/internal/service"
	"github.com/mmeshcher/yarnshop/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shopMetrics := metrics.NewShopMetrics(prometheus.DefaultRegisterer)

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("storage initialization error", "driver", cfg.StorageDriver, "error", err.Error())
	}
	db := docstore.New(backend, logger, docstore.WithFailureObserver(shopMetrics))
	repo := repository.NewDocumentRepository(db)

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is not set, sessions will not survive a restart")
	}
	sessions := session.NewManager(repo, auth.NewSigner(cfg.SessionSecret), cfg.SessionTTL)

	opts := []service.Option{service.WithMetrics(shopMetrics)}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = ratelimit.Connect(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		limiter := ratelimit.NewRedisLimiter(redisClient, cfg.LoginRateLimit, cfg.LoginRateWindow, logger)
		opts = append(opts, service.WithLimiter(limiter))
		sugar.Infow("login rate limiter enabled", "limit", cfg.LoginRateLimit, "window", cfg.LoginRateWindow)
	}

	svc := service.NewService(repo, sessions, opts...)
	defer func() {
		closeErr := svc.Close()
		if redisClient != nil {
			closeErr = multierr.Append(closeErr, redisClient.Close())
		}
		if closeErr != nil {
			sugar.Errorw("close resources", "error", closeErr)
		}
	}()

	boot, err := svc.Bootstrap(ctx, service.AdminAccount{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
	})
	if err != nil {
		sugar.Fatalw("bootstrap error", "error", err.Error())
	}
	sugar.Infow("bootstrap finished", "adminCreated", boot.AdminCreated, "catalogSeeded", boot.CatalogSeeded)

	authMiddleware := middleware.NewAuthMiddleware(svc, sessions.TTL())
	h := handler.NewHandler(svc, logger, authMiddleware, promhttp.Handler())

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting yarnshop server", "addr", cfg.RunAddress, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (docstore.Backend, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		return docstore.NewPostgresBackend(ctx, cfg.DatabaseURI)
	default:
		return docstore.OpenFileBackend(cfg.DataDir, logger)
	}
}
