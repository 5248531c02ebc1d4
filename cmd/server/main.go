// Package main is the entry point for the system dictionary API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"sysdict/internal/domain/auth"
	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/infrastructure/cache"
	v1 "sysdict/internal/infrastructure/http/v1"
	"sysdict/internal/infrastructure/http/v1/handlers"
	"sysdict/internal/infrastructure/http/v1/middleware"
	"sysdict/internal/infrastructure/storage/postgres"
	"sysdict/internal/infrastructure/storage/postgres/catalog_repo"
	"sysdict/pkg/config"
	"sysdict/pkg/logger"
)

const metricsNamespace = "sysdict"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting sysdict server", "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.URL)
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	postgres.LogPoolStats(ctx, pool.Unwrap())

	if cfg.App.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool.Unwrap()); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
		log.Info("database schema is up to date")
	}

	txManager := postgres.NewTxManager(pool)

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// --- Lookup cache ---
	healthChecks := map[string]handlers.CheckFunc{
		"database": pool.Ping,
	}

	var store cache.Store[[]*variable.DataDictionary]
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = rdb.Close() }()

		store = cache.NewRedisStore[[]*variable.DataDictionary](rdb, "sysdict:dictionary", cfg.Cache.TTL)
		healthChecks["redis"] = redisCheck(rdb)
	default:
		store = cache.NewMemoryStore[[]*variable.DataDictionary](cfg.Cache.TTL)
	}

	lookup := cache.NewLookup("dictionary", store, cache.NewMetrics(metricsNamespace, registry))
	log.Infow("lookup cache initialized",
		"backend", cfg.Cache.Backend,
		"ttl", cfg.Cache.TTL,
		"invalidate_on_write", cfg.Cache.InvalidateOnWrite,
	)

	// Other instances announce their writes through NOTIFY.
	var listener *cache.Listener
	if cfg.Cache.InvalidateOnWrite {
		listener = cache.NewListener(pool.Unwrap(), cache.ChannelDictionaryChanged)
		cache.InvalidateOnNotification(listener, lookup)
		listener.Start(logger.WithLogger(ctx, log.WithComponent("dictionary-listener")))
	}

	// --- Audit ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}
	defer auditService.Close()

	// --- Dictionary manager ---
	manager := variable.NewManager(variable.ManagerConfig{
		Categories:        catalog_repo.NewDictionaryCategoryRepo(txManager),
		Dictionaries:      catalog_repo.NewDataDictionaryRepo(txManager),
		TxManager:         txManager,
		Lookup:            lookup,
		Auditor:           auditService,
		Notifier:          postgres.NewNotifier(txManager, cache.ChannelDictionaryChanged),
		InvalidateOnWrite: cfg.Cache.InvalidateOnWrite,
	})

	// --- Auth ---
	var validator middleware.JWTValidator
	if cfg.App.AuthEnabled {
		jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
		jwtCfg.Issuer = cfg.JWT.Issuer
		jwtService, err := auth.NewJWTService(jwtCfg)
		if err != nil {
			log.Fatalw("failed to create jwt service", "error", err)
		}
		validator = jwtService
	} else {
		log.Warn("authentication disabled: every request runs as administrator")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Service:        manager,
		Logger:         log,
		JWTValidator:   validator,
		History:        auditService,
		HealthChecks:   healthChecks,
		HealthInfo:     poolInfo(pool),
		Metrics:        middleware.NewHTTPMetrics(metricsNamespace, registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Debug:          cfg.App.Development(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.App.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if listener != nil {
		listener.Stop()
	}

	log.Info("server stopped")
}

func redisCheck(rdb *redis.Client) handlers.CheckFunc {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

func poolInfo(pool *postgres.Pool) func() map[string]any {
	return func() map[string]any {
		stats := postgres.GetPoolStats(pool.Unwrap())
		return map[string]any{
			"database": map[string]any{
				"total_conns":    stats.TotalConns,
				"acquired_conns": stats.AcquiredConns,
				"idle_conns":     stats.IdleConns,
				"max_conns":      stats.MaxConns,
			},
		}
	}
}
