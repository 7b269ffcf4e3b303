package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	policyservice "polaris/contexts/directory-governance/policy-service"
	eventsadapter "polaris/contexts/directory-governance/policy-service/adapters/events"
	"polaris/contexts/directory-governance/policy-service/adapters/memory"
	postgresadapter "polaris/contexts/directory-governance/policy-service/adapters/postgres"
	redisadapter "polaris/contexts/directory-governance/policy-service/adapters/redis"
	"polaris/contexts/directory-governance/policy-service/ports"
	"polaris/internal/platform/config"
	"polaris/internal/platform/db"
	"polaris/internal/platform/httpserver"
	"polaris/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	bus          messaging.Bus
	module       policyservice.Module
	pollInterval time.Duration
	relay        bool
	consume      bool
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := postgresadapter.Migrate(pg.DB); err != nil {
		_ = pg.Close()
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	cache, err := buildSettingsCache(cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	bus, err := buildBus(cfg, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	module := policyservice.NewModule(policyservice.Dependencies{
		Directory:        repo,
		Policies:         repo,
		Idempotency:      repo,
		SettingsCache:    cache,
		Outbox:           repo,
		Publisher:        eventsadapter.NewPublisher(bus, logger),
		Dedup:            repo,
		Clock:            postgresadapter.SystemClock{},
		IDGenerator:      postgresadapter.UUIDGenerator{},
		IdempotencyTTL:   cfg.IdempotencyTTL,
		SettingsCacheTTL: cfg.SettingsCacheTTL,
		Logger:           logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := postgresadapter.Migrate(pg.DB); err != nil {
		_ = pg.Close()
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	cache, err := buildSettingsCache(cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	bus, err := buildBus(cfg, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	module := policyservice.NewModule(policyservice.Dependencies{
		Directory:        repo,
		Policies:         repo,
		Idempotency:      repo,
		SettingsCache:    cache,
		Outbox:           repo,
		Publisher:        eventsadapter.NewPublisher(bus, logger),
		Dedup:            repo,
		Clock:            postgresadapter.SystemClock{},
		IDGenerator:      postgresadapter.UUIDGenerator{},
		IdempotencyTTL:   cfg.IdempotencyTTL,
		SettingsCacheTTL: cfg.SettingsCacheTTL,
		Logger:           logger,
	})
	module.OutboxRelay.BatchSize = cfg.OutboxBatchSize

	return &WorkerApp{
		postgres:     pg,
		bus:          bus,
		module:       module,
		pollInterval: cfg.OutboxPollInterval,
		relay:        cfg.EnableOutboxRelay,
		consume:      cfg.EnablePolicyChangeConsumer,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.consume {
		err := w.bus.Subscribe(
			ctx,
			eventsadapter.TopicPolicyEvents,
			"polaris-policy-cache-cg",
			w.module.Consumer.Handle,
		)
		if err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.relay {
			if err := w.module.OutboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func buildSettingsCache(cfg config.Config) (ports.SettingsCache, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return memory.NewStore(), nil
	}
	client, err := redisadapter.Connect(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	return redisadapter.NewSettingsCache(client), nil
}

func buildBus(cfg config.Config, logger *slog.Logger) (messaging.Bus, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return messaging.NewInProcess(logger), nil
	}
	return messaging.NewKafka(cfg.KafkaBrokers, logger)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
