package main

import (
	"context"
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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/assessment-gateway/internal/config"
	"github.com/af-corp/assessment-gateway/internal/filter"
	"github.com/af-corp/assessment-gateway/internal/filter/injection"
	"github.com/af-corp/assessment-gateway/internal/filter/secrets"
	"github.com/af-corp/assessment-gateway/internal/gateway"
	"github.com/af-corp/assessment-gateway/internal/httputil"
	"github.com/af-corp/assessment-gateway/internal/ratelimit"
	"github.com/af-corp/assessment-gateway/internal/telemetry"
	"github.com/af-corp/assessment-gateway/internal/upstream"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/gateway.yaml", "path to the gateway configuration file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the configuration")
	flag.Parse()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		bootLogger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	// Load configuration
	loader := config.NewLoader(*configPath, bootLogger)
	if err := loader.Load(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			bootLogger.Error("AI_API_KEY (or OPENAI_API_KEY) must be set", "error", err)
		} else {
			bootLogger.Error("failed to load configuration", "error", err)
		}
		os.Exit(1)
	}
	cfg := loader.Config()

	logger, logCloser := telemetry.NewLogger(cfg.Telemetry)
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(registry)

	// Quota store
	store, closeStore, err := newQuotaStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up quota store", "backend", cfg.Quota.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	loc, err := cfg.Quota.Location()
	if err != nil {
		logger.Error("invalid quota timezone", "timezone", cfg.Quota.Timezone, "error", err)
		os.Exit(1)
	}
	gate := ratelimit.NewGate(store,
		func() int64 { return loader.Config().Quota.DailyLimit },
		ratelimit.WithLocation(loc),
		ratelimit.WithLogger(logger),
		ratelimit.WithMetrics(metrics),
	)
	go gate.RunSweeper(ctx, cfg.Quota.SweepInterval)

	// Upstream
	health := upstream.NewHealthMonitor(cfg.Upstream.HealthFailureThreshold, cfg.Upstream.HealthRecoveryInterval)
	client := upstream.NewClient(cfg.Upstream, nil, health, logger)
	loader.OnReload(func(c *config.Config) {
		client.Reconfigure(c.Upstream)
		logger.Info("upstream settings reloaded", "model", c.Upstream.Model)
	})

	// Description filters
	filters := filter.NewChain(
		secrets.NewScanner(func() config.SecretsFilterConfig { return loader.Config().Filter.Secrets }),
		injection.NewScanner(func() config.InjectionFilterConfig { return loader.Config().Filter.Injection }),
	)

	handler := gateway.NewHandler(gateway.Deps{
		Streamer: client,
		Gate:     gate,
		Filters:  filters,
		Config:   loader.Config,
		Metrics:  metrics,
		Tokens:   telemetry.NewTokenCounter(),
		Health:   health,
		Logger:   logger,
		Version:  version,
	})

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httputil.RequestID)
	r.Use(httputil.CORS(func() httputil.OriginPolicy {
		c := loader.Config()
		return httputil.OriginPolicy{
			AllowedOrigins:  c.CORS.AllowedOrigins,
			AllowCloudflare: c.CORS.AllowCloudflare,
			Production:      c.Production(),
		}
	}))

	r.Get("/health", handler.Health)
	r.Route("/assessment", func(r chi.Router) {
		r.Post("/", handler.Assessment)
		r.Get("/options", handler.Options)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsSrv *http.Server
	if cfg.Telemetry.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Telemetry.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics listener starting", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting",
			"addr", addr,
			"version", version,
			"environment", cfg.Environment,
			"quota_backend", store.Name(),
			"daily_limit", cfg.Quota.DailyLimit,
			"model", cfg.Upstream.Model,
		)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if metricsSrv != nil {
		metricsSrv.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

// newQuotaStore connects the configured quota backend. The returned func
// releases its connections.
func newQuotaStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Store, func(), error) {
	switch cfg.Quota.Backend {
	case config.BackendRedis:
		if len(cfg.Redis.Addresses) == 0 || cfg.Redis.Addresses[0] == "" {
			return nil, nil, errors.New("redis backend selected but no redis address configured")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable (quota checks will fail open)", "error", err)
		} else {
			logger.Info("redis connected", "addr", cfg.Redis.Addresses[0])
		}
		return ratelimit.NewRedisStore(rdb), func() { rdb.Close() }, nil

	case config.BackendPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("parse database config: %w", err)
		}
		if cfg.Database.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Database.MaxConns
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			logger.Warn("database not reachable (quota checks will fail open)", "error", err)
		} else {
			logger.Info("database connected")
		}
		return ratelimit.NewPostgresStore(pool), pool.Close, nil

	default:
		return ratelimit.NewMemoryStore(), func() {}, nil
	}
}
