package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	acttransport "crmsync_backend/internal/activities/transport"
	"crmsync_backend/internal/events"
	"crmsync_backend/platform/logger"
)

// Triggers for a sync cycle.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// Source pulls new communications from an external system into the inbox.
// Pull returns how many events it ingested (duplicates excluded).
type Source interface {
	Name() string
	Pull(ctx context.Context) (int, error)
}

// Decider is the accept path of the activities decision engine, used for
// auto-approval.
type Decider interface {
	Accept(ctx context.Context, id uuid.UUID) (acttransport.DecisionResponse, error)
}

// CycleResult summarizes one full sync cycle.
type CycleResult struct {
	Trigger           string        `json:"trigger"`
	Ingested          int           `json:"ingested"`
	Considered        int           `json:"considered"`
	Processed         int           `json:"processed"`
	Errored           int           `json:"errored"`
	ActivitiesCreated int           `json:"activitiesCreated"`
	AutoAccepted      int           `json:"autoAccepted"`
	Duration          time.Duration `json:"duration"`
}

// Coordinator runs full sync cycles: pull from sources, drain the pending
// backlog through the orchestrator, optionally auto-approve what was staged.
type Coordinator struct {
	sources      []Source
	orchestrator *Orchestrator
	decider      Decider
	autoApprove  bool
	bus          events.Bus
	log          *logger.Logger

	// Cycles never overlap; a manual trigger during a scheduled run waits.
	cycleMu sync.Mutex
}

// NewCoordinator creates a sync cycle coordinator.
func NewCoordinator(sources []Source, orchestrator *Orchestrator, decider Decider, autoApprove bool, bus events.Bus, log *logger.Logger) *Coordinator {
	return &Coordinator{
		sources:      sources,
		orchestrator: orchestrator,
		decider:      decider,
		autoApprove:  autoApprove,
		bus:          bus,
		log:          log,
	}
}

// RunCycle executes one sync cycle. Source pull failures are logged and do
// not abort the cycle: the backlog already in the inbox is still processed.
func (c *Coordinator) RunCycle(ctx context.Context, trigger string) (CycleResult, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	started := time.Now()
	result := CycleResult{Trigger: trigger}

	for _, source := range c.sources {
		ingested, err := source.Pull(ctx)
		if err != nil {
			c.log.Error("source pull failed", "source", source.Name(), "error", err)
			continue
		}
		result.Ingested += ingested
	}

	batch, err := c.orchestrator.ProcessBatch(ctx)
	if err != nil {
		return result, fmt.Errorf("process pending batch: %w", err)
	}
	result.Considered = batch.Considered
	result.Processed = batch.Processed
	result.Errored = batch.Failed
	result.ActivitiesCreated = batch.ActivitiesCreated

	if c.autoApprove && c.decider != nil {
		for _, id := range batch.StagedIDs {
			if _, err := c.decider.Accept(ctx, id); err != nil {
				c.log.Error("auto-approve failed, activity left pending or accepted", "activityId", id, "error", err)
				continue
			}
			result.AutoAccepted++
		}
	}

	result.Duration = time.Since(started)
	c.log.SyncCycle(trigger, result.Ingested, result.Processed, result.Errored, result.ActivitiesCreated, result.AutoAccepted)
	if c.bus != nil {
		c.bus.Publish(ctx, events.SyncCycleCompleted{
			BaseEvent:         events.NewBaseEvent(),
			Trigger:           trigger,
			Ingested:          result.Ingested,
			Processed:         result.Processed,
			Errored:           result.Errored,
			ActivitiesCreated: result.ActivitiesCreated,
			AutoAccepted:      result.AutoAccepted,
			Duration:          result.Duration,
		})
	}

	return result, nil
}
