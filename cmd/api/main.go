// Package main is the entry point for the API server.
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

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/politiguessr/internal/api"
	"github.com/onnwee/politiguessr/internal/auth"
	"github.com/onnwee/politiguessr/internal/config"
	"github.com/onnwee/politiguessr/internal/db"
	"github.com/onnwee/politiguessr/internal/game"
	"github.com/onnwee/politiguessr/internal/health"
	"github.com/onnwee/politiguessr/internal/leaderboard"
	"github.com/onnwee/politiguessr/internal/limits"
	"github.com/onnwee/politiguessr/internal/middleware"
	"github.com/onnwee/politiguessr/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("PolitiGuessr API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Game data
	dataset, err := game.LoadDataset(cfg.DataDir)
	if err != nil {
		logger.Error("failed to load game data", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	logger.Info("game data loaded", "locations", dataset.Size())

	// Postgres (leaderboard)
	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	gameMetrics := api.NewMetrics()
	if err := gameMetrics.Register(registry); err != nil {
		logger.Error("failed to register game metrics", "error", err)
		os.Exit(1)
	}

	// Redis (game allowance counters and the global request limiter).
	// Optional: without it both fall back to in-process stores, which is
	// correct for a single instance and approximate for more.
	var (
		counterStore   limits.CounterStore
		rateLimitStore middleware.RateLimitStore
		redisChecker   api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		}()
		counterStore = limits.NewRedisCounterStore(redisClient)
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient, httpMetrics)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis counter store")
	} else {
		counterStore = limits.NewInMemoryCounterStore()
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			for range time.Tick(5 * time.Minute) {
				memStore.Cleanup()
			}
		}()
		rateLimitStore = memStore
		logger.Warn("REDIS_URL not set, using in-process counters")
	}

	limiter := limits.NewLimiter(counterStore, limits.Config{
		FingerprintSecret: cfg.SessionSecret,
		AnonDailyLimit:    cfg.AnonDailyLimit,
		FreeDailyLimit:    cfg.FreeDailyLimit,
		OnFailOpen:        gameMetrics.IncLimitFailOpen,
	}, logger)

	codec, err := session.NewCodec(cfg.SessionSecret, cfg.SessionMaxAge)
	if err != nil {
		logger.Error("failed to create session codec", "error", err)
		os.Exit(1)
	}

	authService := auth.NewServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
	repo := leaderboard.NewPostgresRepository(pool, logger)

	gameHandlers := api.NewGameHandlers(dataset, codec, limiter, gameMetrics, cfg.MapsAPIKey)
	dailyHandlers := api.NewDailyHandlers(dataset, codec, repo, gameMetrics, cfg.MapsAPIKey)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(pool),
		RedisChecker: redisChecker,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/game", gameHandlers.StartGame)
	mux.HandleFunc("/api/guess", gameHandlers.Guess)
	mux.HandleFunc("/api/daily", dailyHandlers.Daily)
	mux.HandleFunc("/api/daily/submit", dailyHandlers.Submit)
	mux.HandleFunc("/api/daily/leaderboard", dailyHandlers.Leaderboard)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"politiguessr-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware: RequestID -> Logging -> HTTPMetrics -> RateLimiter -> Auth
	var handler http.Handler = mux
	handler = middleware.Auth(authService)(handler)
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc(), httpMetrics)(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
