package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nowgo-ai/nowgo-platform/internal/api"
	"github.com/nowgo-ai/nowgo-platform/internal/auth"
	"github.com/nowgo-ai/nowgo-platform/internal/config"
	"github.com/nowgo-ai/nowgo-platform/internal/filter"
	"github.com/nowgo-ai/nowgo-platform/internal/filter/policy"
	"github.com/nowgo-ai/nowgo-platform/internal/filter/secrets"
	"github.com/nowgo-ai/nowgo-platform/internal/ratelimit"
	"github.com/nowgo-ai/nowgo-platform/internal/telemetry"
	"github.com/nowgo-ai/nowgo-platform/internal/usage"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	bootLogger := telemetry.NewLogger(os.Stdout, "info", "json")

	loader := config.NewLoader(*configDir, bootLogger)
	if err := loader.Load(); err != nil {
		bootLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger := telemetry.NewLogger(os.Stdout, cfg.Telemetry.LogLevel, cfg.Telemetry.LogFormat)
	slog.SetDefault(logger)

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	ctx := context.Background()

	dbPool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Warn("database not reachable (auth and usage will fail until it is)", "error", err)
	} else {
		logger.Info("database connected")
	}

	rdb := connectRedis(ctx, cfg.Redis, logger)

	metrics := telemetry.NewMetrics(nil)

	est, err := api.BuildEstimator(cfg, loader.Models())
	if err != nil {
		logger.Error("failed to build estimator", "error", err)
		os.Exit(1)
	}

	policyEvaluator := policy.NewEvaluator(func() config.PolicyFilterConfig {
		return loader.Config().Filter.Policy
	})
	if cfg.Filter.Policy.Enabled {
		if err := policyEvaluator.Load(ctx); err != nil {
			logger.Error("failed to load policies", "error", err)
			os.Exit(1)
		}
	}

	var usageStore usage.Store
	if cfg.Usage.Enabled {
		usageStore = usage.NewPGStore(dbPool)
	}
	recorder := usage.NewRecorder(
		usageStore,
		usage.NewBreaker(cfg.Usage.CircuitBreaker.FailureThreshold, cfg.Usage.CircuitBreaker.RecoveryProbeInterval),
		cfg.Usage.RecordTimeout,
		logger,
	)

	quota := ratelimit.NewQuotaTracker(rdb)
	handler := api.NewHandler(api.Deps{
		Config:    loader.Config,
		Plans:     loader.Plans,
		Estimator: est,
		PreFilters: filter.NewChain(secrets.NewScanner(func() bool {
			return loader.Config().Filter.Secrets.Enabled
		})),
		PostFilters: filter.NewChain(policyEvaluator),
		Usage:       recorder,
		Quota:       quota,
		Metrics:     metrics,
	})

	loader.OnReload(func() {
		next, err := api.BuildEstimator(loader.Config(), loader.Models())
		if err != nil {
			logger.Error("estimator rebuild failed, keeping previous catalog", "error", err)
			return
		}
		handler.SetEstimator(next)
		logger.Info("estimator reloaded", "models", next.Catalog().Len())

		if loader.Config().Filter.Policy.Enabled {
			if err := policyEvaluator.Load(context.Background()); err != nil {
				logger.Error("policy reload failed", "error", err)
			}
		}
	})

	keyStore := auth.NewCachedKeyStore(dbPool, rdb)
	limiter := ratelimit.NewLimiter(rdb)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(api.Instrument(metrics))

	r.Get("/nowgo/v1/health", healthHandler)
	r.Get("/v1/pricing", handler.Pricing)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(keyStore))
		r.Use(ratelimit.Middleware(limiter, func() int {
			return loader.Config().Routing.DefaultRPM
		}, metrics))

		r.Get("/v1/models", handler.ListModels)
		r.Get("/v1/usage", handler.Usage)

		r.Group(func(r chi.Router) {
			r.Use(ratelimit.QuotaMiddleware(quota, metrics))
			r.Post("/v1/route", handler.Route)
			r.Post("/optimize", handler.Route)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("nowgo starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		logger.Info("metrics listening", "addr", metricsSrv.Addr)
		errCh <- metricsSrv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	metricsSrv.Shutdown(shutdownCtx)
	recorder.Wait()
	if rdb != nil {
		rdb.Close()
	}
	logger.Info("nowgo stopped")
}

// connectRedis returns nil when Redis is not configured or unreachable;
// every Redis-backed component then fails open.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) redis.UniversalClient {
	if len(cfg.Addresses) == 0 || cfg.Addresses[0] == "" {
		logger.Warn("redis not configured (rate limits and key cache disabled)")
		return nil
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addresses,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable (rate limits and key cache disabled)", "error", err)
		rdb.Close()
		return nil
	}
	logger.Info("redis connected", "addrs", cfg.Addresses)
	return rdb
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}
