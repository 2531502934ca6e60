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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/reflection-coach/cmd/mainconfig"
	"github.com/wolfman30/reflection-coach/internal/api/router"
	"github.com/wolfman30/reflection-coach/internal/app/bootstrap"
	"github.com/wolfman30/reflection-coach/internal/chat"
	appconfig "github.com/wolfman30/reflection-coach/internal/config"
	httpmiddleware "github.com/wolfman30/reflection-coach/internal/http/middleware"
	"github.com/wolfman30/reflection-coach/internal/observability/metrics"
	"github.com/wolfman30/reflection-coach/internal/reflection"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

func main() {
	envErr := godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}
	logger.Info("starting reflection-coach API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, reflectionMetrics, gatherer := setupMetrics()

	oracle, err := bootstrap.BuildOracle(ctx, cfg, awsCfg, reflectionMetrics, logger)
	if err != nil {
		logger.Error("failed to configure llm oracle", "error", err)
		os.Exit(1)
	}
	defer func() { _ = oracle.Close() }()

	coach, err := bootstrap.BuildCoach(cfg, oracle.Client, reflectionMetrics, logger)
	if err != nil {
		logger.Error("failed to build coach", "error", err)
		os.Exit(1)
	}

	// Optional persistence
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Warn("postgres unavailable; check-in persistence disabled", "error", err)
		pool = nil
	}
	if pool != nil {
		defer pool.Close()
	}
	stores := bootstrap.BuildStores(cfg, awsCfg, redisClient, pool, logger)

	// Initialize handlers
	reflectionHandler := reflection.NewHandler(coach, checkInRecorder(stores, logger), cfg.TurnTimeout, logger)
	chatHandler := chat.NewHandler(stores.Transcripts, stores.Snapshots, stores.CheckIns, logger)

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer limiter.Stop()
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Reflection:         reflectionHandler,
		Chat:               chatHandler,
		MetricsHandler:     metricsHandler,
		StatsHandler:       metrics.StatsHandler(gatherer, logger),
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server; a turn makes several sequential oracle calls.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TurnTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a dedicated registry with runtime collectors and the
// reflection metrics.
func setupMetrics() (http.Handler, *metrics.ReflectionMetrics, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewReflectionMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m, reg
}

// checkInRecorder keeps a nil recorder out of the interface so the handler
// can skip recording.
func checkInRecorder(stores bootstrap.Stores, logger *logging.Logger) reflection.CheckInRecorder {
	if rec := stores.Recorder(logger); rec != nil {
		return rec
	}
	return nil
}
