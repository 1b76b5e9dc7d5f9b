package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wzesk/sd-export-server/pkg/api"
	"github.com/Wzesk/sd-export-server/pkg/cache"
	"github.com/Wzesk/sd-export-server/pkg/config"
	"github.com/Wzesk/sd-export-server/pkg/design"
	"github.com/Wzesk/sd-export-server/pkg/export"
	"github.com/Wzesk/sd-export-server/pkg/observability"
	"github.com/Wzesk/sd-export-server/pkg/shapediver"

	_ "github.com/lib/pq" // Postgres driver
)

// runServer wires the full stack and blocks until shutdown.
func runServer(stderr io.Writer) int {
	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.ApplyFile(cfg, path, true); err != nil {
			_, _ = fmt.Fprintf(stderr, "config file: %v\n", err)
			return 1
		}
	}

	logger := observability.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := observability.NewMetrics(ctx, observability.MetricsConfig{
		Enabled:  cfg.OTELEnabled,
		Endpoint: cfg.OTELEndpoint,
	})
	if err != nil {
		logger.Error("metrics setup failed", "error", err)
		return 1
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store setup failed", "error", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	artifactCache, err := cache.New(ctx, cache.FactoryConfig{
		Backend:       cache.Backend(cfg.CacheBackend),
		TTL:           cfg.CacheTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		S3Bucket:      cfg.CacheS3Bucket,
		S3Region:      cfg.CacheS3Region,
		S3Endpoint:    cfg.CacheS3Endpoint,
		S3Prefix:      cfg.CacheS3Prefix,
	})
	if err != nil {
		logger.Error("cache setup failed", "error", err)
		return 1
	}

	if cfg.ShapeDiverTicket == "" {
		logger.Warn("SHAPEDIVER_TICKET is not set; export downloads will fail")
	}

	resolver := export.New(
		shapediver.NewClient(nil),
		artifactCache,
		export.Config{
			Ticket:          cfg.ShapeDiverTicket,
			DefaultEndpoint: cfg.ShapeDiverEndpoint,
			JSONParamName:   cfg.JSONParamName,
			PublicBaseURL:   cfg.PublicBaseURL,
		},
		logger,
		nil,
	)

	server := api.NewServer(store, resolver, logger, metrics)
	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	var handler http.Handler = server.Routes()
	handler = limiter.Middleware(handler)
	handler = api.AccessLog(logger, handler)
	handler = api.RequestID(handler)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "cache_backend", cfg.CacheBackend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", "error", err)
		}
	}
	return 0
}

// openStore picks the document store: Postgres when DATABASE_URL is set,
// SQLite lite mode otherwise.
func openStore(ctx context.Context, cfg *config.Config) (design.Store, error) {
	if cfg.DatabaseURL == "" {
		return design.NewSQLiteStore(cfg.SQLitePath)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := design.NewPostgresStore(db)
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	return store, nil
}
