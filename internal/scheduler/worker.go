package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	syncmod "crmsync_backend/internal/sync"
	"crmsync_backend/platform/config"
	"crmsync_backend/platform/logger"
)

// CycleRunner runs one reconciliation cycle; the coordinator implements it.
type CycleRunner interface {
	RunCycle(ctx context.Context, trigger string) (syncmod.CycleResult, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner CycleRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner CycleRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskSyncCycleRun, w.handleSyncCycle)

	return w, nil
}

func (w *Worker) handleSyncCycle(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSyncCyclePayload(task)
	if err != nil {
		return err
	}

	trigger := payload.Trigger
	if trigger == "" {
		trigger = syncmod.TriggerScheduled
	}

	result, err := w.runner.RunCycle(ctx, trigger)
	if err != nil {
		w.log.Error("scheduled sync cycle failed", "trigger", trigger, "error", err)
		return err
	}

	w.log.Info("scheduled sync cycle finished",
		"trigger", trigger,
		"ingested", result.Ingested,
		"processed", result.Processed,
		"errored", result.Errored,
		"activitiesCreated", result.ActivitiesCreated,
		"autoAccepted", result.AutoAccepted,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
