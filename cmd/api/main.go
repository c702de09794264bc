package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"crmsync_backend/internal/activities"
	"crmsync_backend/internal/adapters"
	"crmsync_backend/internal/crm"
	"crmsync_backend/internal/events"
	extractionagent "crmsync_backend/internal/extraction/agent"
	apphttp "crmsync_backend/internal/http"
	"crmsync_backend/internal/http/router"
	"crmsync_backend/internal/inbox"
	syncmod "crmsync_backend/internal/sync"
	"crmsync_backend/migrations"
	"crmsync_backend/platform/config"
	"crmsync_backend/platform/db"
	"crmsync_backend/platform/logger"
	"crmsync_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	inboxModule := inbox.NewModule(pool, eventBus, val, log)
	crmModule := crm.NewModule(pool, log)
	activitiesModule := activities.NewModule(pool, crmModule.Repository(), eventBus, val, log)

	lookups := adapters.NewCRMLookups(crmModule.Repository(), crmModule.Repository())
	extractor, err := extractionagent.New(extractionagent.Config{
		APIKey:  cfg.GetExtractionAPIKey(),
		BaseURL: cfg.GetExtractionBaseURL(),
		Model:   cfg.GetExtractionModel(),
		Lookups: lookups,
		Logger:  log,
	})
	if err != nil {
		log.Error("failed to initialize extraction agent", "error", err)
		panic("failed to initialize extraction agent: " + err.Error())
	}

	orchestrator := syncmod.NewOrchestrator(
		inboxModule.Repository(),
		activitiesModule.Repository(),
		extractor,
		eventBus,
		log,
		syncmod.OrchestratorConfig{
			BatchSize:          cfg.GetSyncBatchSize(),
			FanOut:             cfg.GetSyncFanOut(),
			ExtractionTimeout:  cfg.GetExtractionTimeout(),
			RatePerMinute:      cfg.GetExtractionRatePerMinute(),
			DefaultPhoneRegion: cfg.GetDefaultPhoneRegion(),
		},
	)

	sources := initSources(cfg, inboxModule, log)
	coordinator := syncmod.NewCoordinator(
		sources,
		orchestrator,
		activitiesModule.Service(),
		cfg.GetSyncAutoApprove(),
		eventBus,
		log,
	)
	syncModule := syncmod.NewModule(coordinator)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			inboxModule,
			activitiesModule,
			crmModule,
			syncModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initSources(cfg *config.Config, inboxModule *inbox.Module, log *logger.Logger) []syncmod.Source {
	var sources []syncmod.Source
	if cfg.IsMailboxEnabled() {
		mailbox := adapters.NewMailboxSource(cfg, inboxModule.Service(), inboxModule.Watermarks(), log)
		sources = append(sources, mailbox)
		log.Info("mailbox source enabled", "source", mailbox.Name())
	} else {
		log.Warn("IMAP not configured; sync cycles only process events ingested over the API")
	}
	return sources
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
