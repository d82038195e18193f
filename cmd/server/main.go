package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"sigede/internal/auth/lockout"
	"sigede/internal/auth/metrics"
	"sigede/internal/auth/service"
	"sigede/internal/credential"
	"sigede/internal/identity/aggregator"
	"sigede/internal/identity/store"
	"sigede/internal/identity/store/administrators"
	"sigede/internal/identity/store/citizens"
	"sigede/internal/identity/store/externals"
	"sigede/internal/identity/store/staff"
	"sigede/internal/platform/config"
	"sigede/internal/platform/httpserver"
	"sigede/internal/platform/logger"
	platformredis "sigede/internal/platform/redis"
	"sigede/internal/session/cache"
	"sigede/internal/session/monitor"
	"sigede/internal/session/registry"
	httptransport "sigede/internal/transport/http"
	"sigede/pkg/platform/audit"
	auditpublisher "sigede/pkg/platform/audit/publisher"
	auditkafka "sigede/pkg/platform/audit/store/kafka"
	auditmemory "sigede/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var checks []httptransport.HealthCheck

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Probe: db.PingContext})
	}

	// Session registry: Redis when configured, Postgres next, else memory.
	var sessions registry.Registry
	switch {
	case redisClient != nil:
		sessions = registry.NewRedis(redisClient.Client)
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Probe: redisClient.Health})
	case db != nil:
		sessions = registry.NewPostgres(db)
	default:
		sessions = registry.NewInMemory()
	}

	// Credential secrets follow the same selection, minus Redis: secrets
	// are durable data.
	var secrets credential.SecretStore
	if db != nil {
		secrets = credential.NewPostgresSecretStore(db)
	} else {
		secrets = credential.NewInMemorySecretStore()
	}

	var clientCache cache.ClientCache
	if cfg.CacheDir != "" {
		fileCache, err := cache.NewFile(cfg.CacheDir)
		if err != nil {
			log.Error("client cache init failed", "error", err)
			os.Exit(1)
		}
		clientCache = fileCache
	} else {
		clientCache = cache.NewInMemory()
	}

	var auditStore audit.Store
	if len(cfg.Kafka.Seeds) > 0 {
		kafkaStore, err := auditkafka.New(cfg.Kafka.Seeds, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka audit store init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}
	publisher := auditpublisher.NewPublisher(auditStore, auditpublisher.WithAsyncBuffer(256))
	defer publisher.Close()

	resolver := aggregator.New(log, identityStores()...)
	validator := credential.NewValidator(secrets, log)

	authService := service.New(resolver, validator, sessions, clientCache, log,
		service.WithLockout(lockout.New(lockout.DefaultConfig())),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(metrics.New()),
		service.WithMonitor(monitor.Config{
			Interval:         cfg.Monitor.Interval,
			FailureThreshold: cfg.Monitor.FailureThreshold,
			Disabled:         cfg.Monitor.Disabled,
		}, monitor.Hooks{}),
	)
	defer authService.Close()

	router := httptransport.NewRouter(
		httptransport.NewAuthHandler(authService, log),
		httptransport.NewAdminHandler(authService, auditStore, log),
		cfg.AdminToken,
		log,
		checks...,
	)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting sigede", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// identityStores builds the four in-process directories. Records arrive via
// each store's Seed; swap for real directory adapters per deployment.
func identityStores() []store.IdentityStore {
	return []store.IdentityStore{
		administrators.New(),
		staff.New(),
		citizens.New(),
		externals.New(),
	}
}
