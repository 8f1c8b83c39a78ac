package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/api"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/audit"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/config"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/metrics"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/posadaapi"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("POSADA_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	client := posadaapi.New(cfg.Backend.BaseURL, cfg.Backend.APIKey)
	client.UsePreMergedBookings(cfg.Backend.PreMerged)
	client.UseRateLimit(cfg.Backend.RateLimit, cfg.Backend.RateBurst)

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	var auditStore *audit.Store
	if cfg.Audit.Enabled {
		path := cfg.Audit.Path
		if path == "" {
			path = "data/audit.db"
		}
		auditStore, err = audit.Open(path, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open audit store")
		}
		defer auditStore.Close()
	}

	controller := timeline.NewController(client, calendar.Today(), cfg.DefaultWindowDays(), &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		port := cfg.Monitoring.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go startMetricsServer(ctx, port, &logger)
	}

	if auditStore != nil {
		go startAuditCleanupLoop(ctx, auditStore, cfg.AuditRetention(), &logger)
	}

	server := api.NewHTTPServer(cfg, controller, client, auditStore, &logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Msg("back-office server started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("back-office server stopped")
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("metrics server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startAuditCleanupLoop(ctx context.Context, store *audit.Store, retention time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Cleanup(ctx, retention)
			if err != nil {
				logger.Error().Err(err).Msg("audit cleanup failed")
				continue
			}
			if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("audit entries cleaned up")
			}
		}
	}
}
