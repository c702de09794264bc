package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	actrepo "crmsync_backend/internal/activities/repository"
	"crmsync_backend/internal/extraction"
	inboxrepo "crmsync_backend/internal/inbox/repository"
	"crmsync_backend/platform/logger"
)

const (
	msgUnexpectedErr  = "unexpected error: %v"
	msgWrongStatus    = "expected status %q for event %s, got %q"
	msgWrongProcessed = "expected %d processed, got %d"
	msgWrongFailed    = "expected %d failed, got %d"
)

// fakeEventStore is an in-memory inbox slice; orchestrator goroutines hit it
// concurrently, so every method locks.
type fakeEventStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]inboxrepo.SourceEvent
	order  []uuid.UUID
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[uuid.UUID]inboxrepo.SourceEvent)}
}

func (f *fakeEventStore) add(externalID, subject, body string) inboxrepo.SourceEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	event := inboxrepo.SourceEvent{
		ID:         uuid.New(),
		ExternalID: externalID,
		Kind:       inboxrepo.KindEmail,
		Subject:    subject,
		Sender:     "jane@x.com",
		Body:       body,
		ReceivedAt: time.Now(),
		Status:     inboxrepo.StatusPending,
	}
	f.events[event.ID] = event
	f.order = append(f.order, event.ID)
	return event
}

func (f *fakeEventStore) status(id uuid.UUID) inboxrepo.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id].Status
}

func (f *fakeEventStore) ListPending(_ context.Context, limit int) ([]inboxrepo.SourceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []inboxrepo.SourceEvent
	for _, id := range f.order {
		if len(pending) == limit {
			break
		}
		if event := f.events[id]; event.Status == inboxrepo.StatusPending {
			pending = append(pending, event)
		}
	}
	return pending, nil
}

func (f *fakeEventStore) setStatus(id uuid.UUID, status inboxrepo.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event := f.events[id]
	event.Status = status
	f.events[id] = event
}

func (f *fakeEventStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.setStatus(id, inboxrepo.StatusProcessing)
	return nil
}

func (f *fakeEventStore) MarkProcessed(_ context.Context, id uuid.UUID, _ map[string]int) error {
	f.setStatus(id, inboxrepo.StatusProcessed)
	return nil
}

func (f *fakeEventStore) MarkError(_ context.Context, id uuid.UUID, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event := f.events[id]
	event.Status = inboxrepo.StatusError
	event.ErrorDetail = &detail
	f.events[id] = event
	return nil
}

func (f *fakeEventStore) ResetToPending(_ context.Context, id uuid.UUID) error {
	f.setStatus(id, inboxrepo.StatusPending)
	return nil
}

// fakeStager records staged batches and can fail on demand.
type fakeStager struct {
	mu      sync.Mutex
	batches map[uuid.UUID][]actrepo.NewActivity
	err     error
}

func newFakeStager() *fakeStager {
	return &fakeStager{batches: make(map[uuid.UUID][]actrepo.NewActivity)}
}

func (f *fakeStager) CreateBatch(_ context.Context, sourceEventID uuid.UUID, prov actrepo.Provenance, items []actrepo.NewActivity) ([]actrepo.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches[sourceEventID] = items

	staged := make([]actrepo.Activity, 0, len(items))
	for _, item := range items {
		staged = append(staged, actrepo.Activity{
			ID:            uuid.New(),
			SourceEventID: &sourceEventID,
			EntityType:    item.EntityType,
			Action:        item.Action,
			Payload:       item.Payload,
			Provenance:    prov,
			Status:        actrepo.StatusPending,
		})
	}
	return staged, nil
}

// fakeExtractor returns canned results keyed by the communication subject.
type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]extraction.Result
	errs    map[string]error
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		results: make(map[string]extraction.Result),
		errs:    make(map[string]error),
	}
}

func (f *fakeExtractor) Extract(_ context.Context, comm extraction.Communication) (extraction.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[comm.Subject]; ok {
		return extraction.Result{}, err
	}
	return f.results[comm.Subject], nil
}

func newTestOrchestrator(store *fakeEventStore, stager *fakeStager, ext *fakeExtractor) *Orchestrator {
	return NewOrchestrator(store, stager, ext, nil, logger.New("development"), OrchestratorConfig{
		BatchSize:          10,
		FanOut:             2,
		ExtractionTimeout:  time.Second,
		DefaultPhoneRegion: "US",
	})
}

func TestProcessBatchStagesProposals(t *testing.T) {
	store := newFakeEventStore()
	stager := newFakeStager()
	ext := newFakeExtractor()
	event := store.add("msg-1", "Intro call", "Met Jane, send the proposal.")
	ext.results["Intro call"] = extraction.Result{
		NewContacts: []extraction.ContactProposal{{Name: "Jane Doe", Email: "jane@x.com"}},
		NewTasks:    []extraction.TaskProposal{{Title: "Send proposal"}},
	}

	result, err := newTestOrchestrator(store, stager, ext).ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	if result.Processed != 1 {
		t.Fatalf(msgWrongProcessed, 1, result.Processed)
	}
	if result.ActivitiesCreated != 2 {
		t.Fatalf("expected 2 staged activities, got %d", result.ActivitiesCreated)
	}
	if len(result.StagedIDs) != 2 {
		t.Fatalf("expected 2 staged ids, got %d", len(result.StagedIDs))
	}
	if got := store.status(event.ID); got != inboxrepo.StatusProcessed {
		t.Fatalf(msgWrongStatus, inboxrepo.StatusProcessed, event.ID, got)
	}
	if len(stager.batches[event.ID]) != 2 {
		t.Fatalf("expected 2 items in batch, got %d", len(stager.batches[event.ID]))
	}
}

func TestProcessBatchIsolatesFailingExtraction(t *testing.T) {
	store := newFakeEventStore()
	stager := newFakeStager()
	ext := newFakeExtractor()
	good1 := store.add("msg-1", "First", "body")
	bad := store.add("msg-2", "Broken", "body")
	good2 := store.add("msg-3", "Third", "body")
	ext.errs["Broken"] = errors.New("model unreachable")

	result, err := newTestOrchestrator(store, stager, ext).ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	if result.Processed != 2 {
		t.Fatalf(msgWrongProcessed, 2, result.Processed)
	}
	if result.Failed != 1 {
		t.Fatalf(msgWrongFailed, 1, result.Failed)
	}
	if got := store.status(bad.ID); got != inboxrepo.StatusError {
		t.Fatalf(msgWrongStatus, inboxrepo.StatusError, bad.ID, got)
	}
	for _, id := range []uuid.UUID{good1.ID, good2.ID} {
		if got := store.status(id); got != inboxrepo.StatusProcessed {
			t.Fatalf(msgWrongStatus, inboxrepo.StatusProcessed, id, got)
		}
	}
}

func TestProcessBatchZeroProposalsStillProcessed(t *testing.T) {
	store := newFakeEventStore()
	stager := newFakeStager()
	ext := newFakeExtractor()
	event := store.add("msg-1", "Newsletter", "Nothing actionable here.")

	result, err := newTestOrchestrator(store, stager, ext).ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	if result.Processed != 1 {
		t.Fatalf(msgWrongProcessed, 1, result.Processed)
	}
	if result.ActivitiesCreated != 0 {
		t.Fatalf("expected 0 staged activities, got %d", result.ActivitiesCreated)
	}
	if got := store.status(event.ID); got != inboxrepo.StatusProcessed {
		t.Fatalf(msgWrongStatus, inboxrepo.StatusProcessed, event.ID, got)
	}
}

func TestProcessBatchStagingFailureResetsEvent(t *testing.T) {
	store := newFakeEventStore()
	stager := newFakeStager()
	stager.err = errors.New("connection refused")
	ext := newFakeExtractor()
	event := store.add("msg-1", "Intro call", "Met Jane.")
	ext.results["Intro call"] = extraction.Result{
		NewContacts: []extraction.ContactProposal{{Email: "jane@x.com"}},
	}

	result, err := newTestOrchestrator(store, stager, ext).ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	if result.Failed != 1 {
		t.Fatalf(msgWrongFailed, 1, result.Failed)
	}
	if got := store.status(event.ID); got != inboxrepo.StatusPending {
		t.Fatalf(msgWrongStatus, inboxrepo.StatusPending, event.ID, got)
	}
}

func TestBuildActivitiesDropsUnparseableUpdateTarget(t *testing.T) {
	items := buildActivities(extraction.Result{
		ContactUpdates: []extraction.ContactUpdateProposal{
			{ContactID: "not-a-uuid", Changes: []extraction.FieldChange{{Field: "title", NewValue: "CTO"}}},
			{ContactID: uuid.New().String(), Changes: []extraction.FieldChange{{Field: "title", NewValue: "CTO"}}},
		},
	})

	if len(items) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(items))
	}
	if items[0].Payload.ContactUpdate == nil {
		t.Fatal("expected contact update payload")
	}
}
