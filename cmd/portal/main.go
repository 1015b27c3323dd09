package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medicare-hms/portal-booking/internal/api/router"
	appconfig "github.com/medicare-hms/portal-booking/internal/config"
	"github.com/medicare-hms/portal-booking/internal/directory"
	"github.com/medicare-hms/portal-booking/internal/http/handlers"
	"github.com/medicare-hms/portal-booking/internal/medicare"
	"github.com/medicare-hms/portal-booking/internal/observability/metrics"
	"github.com/medicare-hms/portal-booking/pkg/logging"
)

func main() {
	// Load .env in development; ignored when absent.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting portal-booking server",
		"env", cfg.Env,
		"port", cfg.Port,
		"hms_base_url", cfg.HMSBaseURL,
	)

	if cfg.PatientJWTSecret == "" {
		logger.Error("PATIENT_JWT_SECRET is required")
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// HMS client
	hmsClient := medicare.NewClient(cfg.HMSBaseURL, logger,
		medicare.WithTimeout(cfg.HMSTimeout),
		medicare.WithAuthToken(cfg.HMSAuthToken),
	)

	// Roster cache: Redis when configured, in-memory otherwise.
	var rosterCache directory.Cache
	if cfg.RedisAddr != "" {
		redisOpts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rosterCache = directory.NewRedisCache(redis.NewClient(redisOpts), cfg.RosterCacheTTL)
		logger.Info("using redis roster cache", "addr", cfg.RedisAddr)
	} else {
		rosterCache = directory.NewMemoryCache()
	}
	dir := directory.New(hmsClient, rosterCache, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the roster; a cold HMS is not fatal, sessions report 503 until
	// the first refresh succeeds.
	warmCtx, cancel := context.WithTimeout(ctx, cfg.HMSTimeout)
	if err := dir.Refresh(warmCtx); err != nil {
		logger.Error("initial roster refresh failed", "error", err)
	}
	cancel()
	go dir.Run(ctx, cfg.RosterRefresh)

	// Booking sessions
	submitter := medicare.NewBookingSubmitter(hmsClient)
	sessions := handlers.NewBookingSessions(dir, hmsClient, submitter, logger,
		handlers.WithIdleTTL(cfg.SessionIdleTTL),
		handlers.WithMetrics(bookingMetrics),
	)
	go sessions.Run(ctx)

	r := router.New(&router.Config{
		Logger:             logger,
		Sessions:           sessions,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		PatientJWTSecret:   cfg.PatientJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		SessionRatePerSec:  2,
		SessionBurst:       5,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
