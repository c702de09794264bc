package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	actrepo "crmsync_backend/internal/activities/repository"
	"crmsync_backend/internal/events"
	"crmsync_backend/internal/extraction"
	inboxrepo "crmsync_backend/internal/inbox/repository"
	"crmsync_backend/platform/logger"
)

// EventStore is the slice of the inbox repository the orchestrator drives.
type EventStore interface {
	ListPending(ctx context.Context, limit int) ([]inboxrepo.SourceEvent, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkProcessed(ctx context.Context, id uuid.UUID, summary map[string]int) error
	MarkError(ctx context.Context, id uuid.UUID, detail string) error
	ResetToPending(ctx context.Context, id uuid.UUID) error
}

// ActivityStager stages proposed activities for review.
type ActivityStager interface {
	CreateBatch(ctx context.Context, sourceEventID uuid.UUID, prov actrepo.Provenance, items []actrepo.NewActivity) ([]actrepo.Activity, error)
}

// BatchResult summarizes one orchestrator pass over the pending backlog.
type BatchResult struct {
	Considered        int
	Processed         int
	Failed            int
	ActivitiesCreated int
	StagedIDs         []uuid.UUID
}

// OrchestratorConfig holds the tuning knobs for a batch pass.
type OrchestratorConfig struct {
	BatchSize          int
	FanOut             int
	ExtractionTimeout  time.Duration
	RatePerMinute      int
	DefaultPhoneRegion string
}

// Orchestrator drains pending source events through extraction into staged
// activities. Each event is processed independently: one failing extraction
// marks that event error and never blocks the rest of the batch.
type Orchestrator struct {
	store     EventStore
	stager    ActivityStager
	extractor extraction.Extractor
	limiter   *rate.Limiter
	bus       events.Bus
	log       *logger.Logger
	cfg       OrchestratorConfig
}

// NewOrchestrator creates an orchestrator over the given stores and extractor.
func NewOrchestrator(store EventStore, stager ActivityStager, extractor extraction.Extractor, bus events.Bus, log *logger.Logger, cfg OrchestratorConfig) *Orchestrator {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 25
	}
	if cfg.FanOut < 1 {
		cfg.FanOut = 1
	}
	if cfg.ExtractionTimeout <= 0 {
		cfg.ExtractionTimeout = 90 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(float64(cfg.RatePerMinute) / 60.0)
	}

	return &Orchestrator{
		store:     store,
		stager:    stager,
		extractor: extractor,
		limiter:   rate.NewLimiter(limit, 1),
		bus:       bus,
		log:       log,
		cfg:       cfg,
	}
}

// ProcessBatch claims up to BatchSize pending events and runs each through
// extraction and staging with bounded concurrency.
func (o *Orchestrator) ProcessBatch(ctx context.Context) (BatchResult, error) {
	pending, err := o.store.ListPending(ctx, o.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list pending source events: %w", err)
	}

	result := BatchResult{Considered: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.FanOut)

	for _, event := range pending {
		event := event
		g.Go(func() error {
			// Failures are recorded per event, never returned: returning an
			// error would cancel the sibling goroutines via gctx.
			staged, err := o.processEvent(gctx, event)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				return nil
			}
			result.Processed++
			result.ActivitiesCreated += len(staged)
			result.StagedIDs = append(result.StagedIDs, staged...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// processEvent runs one source event through the pipeline and returns the ids
// of the activities it staged.
func (o *Orchestrator) processEvent(ctx context.Context, event inboxrepo.SourceEvent) ([]uuid.UUID, error) {
	if err := o.store.MarkProcessing(ctx, event.ID); err != nil {
		// Another worker claimed it between listing and claiming.
		return nil, fmt.Errorf("claim source event: %w", err)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		o.resetBestEffort(event.ID)
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	extractCtx, cancel := context.WithTimeout(ctx, o.cfg.ExtractionTimeout)
	extracted, err := o.extractor.Extract(extractCtx, extraction.Communication{
		Kind:       string(event.Kind),
		Subject:    event.Subject,
		Body:       event.Body,
		Sender:     event.Sender,
		ReceivedAt: event.ReceivedAt,
	})
	cancel()
	if err != nil {
		o.log.ExtractionError(event.ID.String(), err)
		if markErr := o.store.MarkError(ctx, event.ID, err.Error()); markErr != nil {
			o.log.DatabaseError("mark source event error", markErr)
		}
		if o.bus != nil {
			o.bus.Publish(ctx, events.ExtractionFailed{
				BaseEvent:     events.NewBaseEvent(),
				SourceEventID: event.ID,
				Detail:        err.Error(),
			})
		}
		return nil, err
	}

	sanitized := extraction.Sanitize(extracted, o.cfg.DefaultPhoneRegion)
	items := buildActivities(sanitized)
	summary := map[string]int{
		"contacts":       len(sanitized.NewContacts),
		"contactUpdates": len(sanitized.ContactUpdates),
		"tasks":          len(sanitized.NewTasks),
		"deals":          len(sanitized.NewDeals),
	}

	// A communication with nothing actionable is still processed, not an error.
	if len(items) == 0 {
		if err := o.store.MarkProcessed(ctx, event.ID, summary); err != nil {
			return nil, fmt.Errorf("mark source event processed: %w", err)
		}
		return nil, nil
	}

	receivedAt := event.ReceivedAt
	staged, err := o.stager.CreateBatch(ctx, event.ID, actrepo.Provenance{
		Subject:    event.Subject,
		Sender:     event.Sender,
		ReceivedAt: &receivedAt,
	}, items)
	if err != nil {
		// Staging is all-or-nothing; put the event back so the next cycle
		// retries it from scratch.
		o.log.Error("staging failed, source event reset", "sourceEventId", event.ID, "error", err)
		o.resetBestEffort(event.ID)
		return nil, fmt.Errorf("stage activities: %w", err)
	}

	if err := o.store.MarkProcessed(ctx, event.ID, summary); err != nil {
		return nil, fmt.Errorf("mark source event processed: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(staged))
	for _, activity := range staged {
		ids = append(ids, activity.ID)
		if o.bus != nil {
			o.bus.Publish(ctx, events.ActivityStaged{
				BaseEvent:     events.NewBaseEvent(),
				ActivityID:    activity.ID,
				SourceEventID: event.ID,
				EntityType:    string(activity.EntityType),
				Action:        string(activity.Action),
			})
		}
	}
	return ids, nil
}

func (o *Orchestrator) resetBestEffort(id uuid.UUID) {
	// Runs after the batch context may already be canceled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.ResetToPending(ctx, id); err != nil {
		o.log.DatabaseError("reset source event to pending", err)
	}
}

// buildActivities maps sanitized proposals to stageable activities. Contact
// updates with an unparseable target id are dropped here; everything else in
// the sanitized result stages one activity.
func buildActivities(result extraction.Result) []actrepo.NewActivity {
	items := make([]actrepo.NewActivity, 0,
		len(result.NewContacts)+len(result.ContactUpdates)+len(result.NewTasks)+len(result.NewDeals))

	for _, contact := range result.NewContacts {
		items = append(items, actrepo.NewActivity{
			EntityType: actrepo.EntityContact,
			Action:     actrepo.ActionCreate,
			Payload: actrepo.Payload{
				Contact: &actrepo.ContactPayload{
					Name:    contact.Name,
					Email:   contact.Email,
					Phone:   contact.Phone,
					Company: contact.Company,
					Title:   contact.Title,
				},
			},
		})
	}

	for _, update := range result.ContactUpdates {
		contactID, err := uuid.Parse(update.ContactID)
		if err != nil {
			continue
		}
		changes := make([]actrepo.FieldChange, 0, len(update.Changes))
		for _, change := range update.Changes {
			changes = append(changes, actrepo.FieldChange{
				Field:    change.Field,
				OldValue: change.OldValue,
				NewValue: change.NewValue,
			})
		}
		items = append(items, actrepo.NewActivity{
			EntityType: actrepo.EntityContact,
			Action:     actrepo.ActionUpdate,
			Payload: actrepo.Payload{
				ContactUpdate: &actrepo.ContactUpdatePayload{ContactID: contactID, Changes: changes},
			},
		})
	}

	for _, task := range result.NewTasks {
		items = append(items, actrepo.NewActivity{
			EntityType: actrepo.EntityTask,
			Action:     actrepo.ActionCreate,
			Payload: actrepo.Payload{
				Task: &actrepo.TaskPayload{Title: task.Title, Details: task.Details, DueAt: task.DueAt},
			},
		})
	}

	for _, deal := range result.NewDeals {
		items = append(items, actrepo.NewActivity{
			EntityType: actrepo.EntityDeal,
			Action:     actrepo.ActionCreate,
			Payload: actrepo.Payload{
				Deal: &actrepo.DealPayload{Name: deal.Name, Stage: deal.Stage, Amount: deal.Amount},
			},
		})
	}

	return items
}
