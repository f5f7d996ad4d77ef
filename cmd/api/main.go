// Package main is the entry point for the doWhat API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dowhat-app/dowhat/internal/api"
	"github.com/dowhat-app/dowhat/internal/auth"
	"github.com/dowhat-app/dowhat/internal/config"
	"github.com/dowhat-app/dowhat/internal/db"
	"github.com/dowhat-app/dowhat/internal/health"
	"github.com/dowhat-app/dowhat/internal/jobs"
	"github.com/dowhat-app/dowhat/internal/middleware"
	"github.com/dowhat-app/dowhat/internal/recommend"
	"github.com/dowhat-app/dowhat/internal/reliability"
	"github.com/dowhat-app/dowhat/internal/tracing"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("doWhat API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// Load configuration
	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	// Initialize logger
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	ctx := context.Background()

	// Connect to Postgres
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Optional Redis client for the recommendation response cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	// Initialize tracing
	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName: "dowhat-api",
		Enabled:     cfg.TracingEnabled,
		Environment: cfg.Env,
		Protocol:    cfg.TracingProtocol,
		Endpoint:    cfg.TracingEndpoint,
		SampleRate:  cfg.TracingSampleRate,
		Insecure:    cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Prometheus registry with process/runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics := middleware.NewMetrics()
	recommendMetrics := recommend.NewMetrics()
	reliabilityMetrics := reliability.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for name, register := range map[string]func(prometheus.Registerer) error{
		"http":        httpMetrics.Register,
		"recommend":   recommendMetrics.Register,
		"reliability": reliabilityMetrics.Register,
		"jobs":        jobMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "component", name, "error", err)
			os.Exit(1)
		}
	}

	// Recommendation engine with calibrated weights
	weights, err := recommend.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		// LoadCalibration already fell back to defaults
		logger.Warn("recommendation calibration unavailable", "error", err)
	}
	engine := recommend.NewEngine(recommend.EngineConfig{
		Weights: weights,
		Logger:  logger,
		Metrics: recommendMetrics,
	}, recommend.NewPostgresDataSource(conn))

	var cache *recommend.Cache
	if redisClient != nil {
		cache = recommend.NewCache(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second, recommendMetrics)
	}

	// Reliability aggregator, stores, and background recompute job
	reliabilitySource := reliability.NewPostgresDataSource(conn)
	reliabilityStore := reliability.NewPostgresStore(conn)
	aggregator := reliability.NewAggregator(reliability.AggregatorConfig{
		Logger:  logger,
		Metrics: reliabilityMetrics,
	}, reliabilitySource, reliabilityStore)

	recomputeJob := reliability.NewRecomputeJob(reliability.RecomputeJobConfig{
		Interval:   time.Duration(cfg.RecomputeIntervalMinutes) * time.Minute,
		BatchSize:  cfg.RecomputeBatchSize,
		Logger:     logger,
		Metrics:    reliabilityMetrics,
		JobMetrics: jobMetrics,
	}, aggregator, reliabilitySource)
	if err := recomputeJob.Start(ctx); err != nil {
		logger.Error("failed to start recompute job", "error", err)
		os.Exit(1)
	}

	// JWT validation for protected routes
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Handlers
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker: health.NewDBChecker(conn),
		RedisChecker: func() api.HealthChecker {
			if redisClient == nil {
				return nil
			}
			return health.NewRedisChecker(redisClient)
		}(),
	})
	recommendationHandlers := api.NewRecommendationHandlers(engine, cache, cfg.RecommendationLimit)
	reliabilityHandlers := api.NewReliabilityHandlers(reliabilityStore, aggregator)

	// Routes
	authMiddleware := middleware.Auth(jwtService)
	mux := newMux(apiHandlers{
		health:          healthHandlers.Health,
		ready:           healthHandlers.Ready,
		metrics:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		recommendations: authMiddleware(http.HandlerFunc(recommendationHandlers.GetRecommendations)),
		reliability:     authMiddleware(reliabilityHandlers),
	})

	// Apply middleware: RequestID -> Tracing -> Logging -> HTTPMetrics
	handler := middleware.RequestID(
		middleware.Tracing("dowhat-api")(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(httpMetrics)(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	recomputeJob.Stop()

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
