package main

import (
	"context"
	"errors"
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
	"crmsync_backend/internal/inbox"
	"crmsync_backend/internal/scheduler"
	syncmod "crmsync_backend/internal/sync"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Worker-side pipeline wiring (no HTTP handlers required).
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

	var sources []syncmod.Source
	if cfg.IsMailboxEnabled() {
		mailbox := adapters.NewMailboxSource(cfg, inboxModule.Service(), inboxModule.Watermarks(), log)
		sources = append(sources, mailbox)
		log.Info("mailbox source enabled", "source", mailbox.Name())
	}

	coordinator := syncmod.NewCoordinator(
		sources,
		orchestrator,
		activitiesModule.Service(),
		cfg.GetSyncAutoApprove(),
		eventBus,
		log,
	)

	enqueuer, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = enqueuer.Close() }()
	go enqueuePeriodically(ctx, enqueuer, cfg.GetSyncInterval(), log)

	worker, err := scheduler.NewWorker(cfg, coordinator, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// enqueuePeriodically drops a sync cycle task on the queue every interval.
// The worker dequeues it, so multiple scheduler replicas coalesce on the
// queue rather than each running its own cycle.
func enqueuePeriodically(ctx context.Context, enqueuer scheduler.CycleEnqueuer, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := enqueuer.EnqueueSyncCycle(ctx, syncmod.TriggerScheduled); err != nil {
				log.Error("failed to enqueue sync cycle", "error", err)
			}
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
