package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"crmsync_backend/internal/inbox/repository"
	"crmsync_backend/internal/inbox/transport"
	"crmsync_backend/platform/apperr"
	"crmsync_backend/platform/logger"
)

const (
	msgUnexpectedErr    = "unexpected error: %v"
	msgWrongStatus      = "expected status %q, got %q"
	msgWrongEventCount  = "expected %d stored events, got %d"
	msgExpectedConflict = "expected conflict error, got %v"
)

type fakeRepo struct {
	events map[string]repository.SourceEvent
	byID   map[uuid.UUID]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events: make(map[string]repository.SourceEvent),
		byID:   make(map[uuid.UUID]string),
	}
}

func (f *fakeRepo) Ingest(_ context.Context, params repository.IngestParams) (repository.SourceEvent, bool, error) {
	if existing, ok := f.events[params.ExternalID]; ok {
		return existing, false, nil
	}

	event := repository.SourceEvent{
		ID:         uuid.New(),
		ExternalID: params.ExternalID,
		Kind:       params.Kind,
		Subject:    params.Subject,
		Sender:     params.Sender,
		Body:       params.Body,
		ReceivedAt: params.ReceivedAt,
		Status:     repository.StatusPending,
		Metadata:   params.Metadata,
	}
	f.events[params.ExternalID] = event
	f.byID[event.ID] = params.ExternalID
	return event, true, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.SourceEvent, error) {
	externalID, ok := f.byID[id]
	if !ok {
		return repository.SourceEvent{}, apperr.NotFound("source event not found")
	}
	return f.events[externalID], nil
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]repository.SourceEvent, error) {
	results := make([]repository.SourceEvent, 0, len(f.events))
	for _, event := range f.events {
		results = append(results, event)
	}
	return results, nil
}

func (f *fakeRepo) ListPending(_ context.Context, _ int) ([]repository.SourceEvent, error) {
	var results []repository.SourceEvent
	for _, event := range f.events {
		if event.Status == repository.StatusPending {
			results = append(results, event)
		}
	}
	return results, nil
}

func (f *fakeRepo) setStatus(id uuid.UUID, status repository.Status) {
	externalID := f.byID[id]
	event := f.events[externalID]
	event.Status = status
	f.events[externalID] = event
}

func (f *fakeRepo) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.setStatus(id, repository.StatusProcessing)
	return nil
}

func (f *fakeRepo) MarkProcessed(_ context.Context, id uuid.UUID, _ map[string]int) error {
	f.setStatus(id, repository.StatusProcessed)
	return nil
}

func (f *fakeRepo) MarkError(_ context.Context, id uuid.UUID, detail string) error {
	externalID := f.byID[id]
	event := f.events[externalID]
	event.Status = repository.StatusError
	event.ErrorDetail = &detail
	f.events[externalID] = event
	return nil
}

func (f *fakeRepo) ResetToPending(_ context.Context, id uuid.UUID) error {
	externalID, ok := f.byID[id]
	if !ok {
		return apperr.NotFound("source event not found")
	}
	event := f.events[externalID]
	if event.Status != repository.StatusError && event.Status != repository.StatusProcessing {
		return apperr.Conflict("source event cannot be reset from its current status")
	}
	event.Status = repository.StatusPending
	event.ErrorDetail = nil
	f.events[externalID] = event
	return nil
}

func newTestService(repo repository.Repository) *Service {
	return New(repo, nil, logger.New("development"))
}

func ingestRequest(externalID string) transport.IngestEventRequest {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return transport.IngestEventRequest{
		ExternalID: externalID,
		Kind:       "email",
		Subject:    "Intro call follow-up",
		Sender:     "a@x.com",
		Body:       "Please send the proposal to Jane.",
		ReceivedAt: &received,
	}
}

func TestIngestCreatesNewEvent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	result, err := svc.Ingest(context.Background(), ingestRequest("msg-1"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if result.Status != IngestCreated {
		t.Fatalf(msgWrongStatus, IngestCreated, result.Status)
	}
	if result.Event.Status != string(repository.StatusPending) {
		t.Fatalf(msgWrongStatus, repository.StatusPending, result.Event.Status)
	}
}

func TestIngestDuplicateExternalIDIsSkipped(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	first, err := svc.Ingest(context.Background(), ingestRequest("msg-dup"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	second, err := svc.Ingest(context.Background(), ingestRequest("msg-dup"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if second.Status != IngestSkipped {
		t.Fatalf(msgWrongStatus, IngestSkipped, second.Status)
	}
	if second.Event.ID != first.Event.ID {
		t.Fatalf("expected duplicate ingest to return the original event, got %s and %s", first.Event.ID, second.Event.ID)
	}
	if len(repo.events) != 1 {
		t.Fatalf(msgWrongEventCount, 1, len(repo.events))
	}
}

func TestIngestDuplicateIgnoresStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	first, err := svc.Ingest(context.Background(), ingestRequest("msg-done"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	repo.setStatus(first.Event.ID, repository.StatusProcessed)

	second, err := svc.Ingest(context.Background(), ingestRequest("msg-done"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if second.Status != IngestSkipped {
		t.Fatalf(msgWrongStatus, IngestSkipped, second.Status)
	}
	if len(repo.events) != 1 {
		t.Fatalf(msgWrongEventCount, 1, len(repo.events))
	}
}

func TestRetryResetsErrorEvent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Ingest(context.Background(), ingestRequest("msg-err"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if err := repo.MarkError(context.Background(), created.Event.ID, "extraction timed out"); err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	result, err := svc.Retry(context.Background(), created.Event.ID)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if result.Status != string(repository.StatusPending) {
		t.Fatalf(msgWrongStatus, repository.StatusPending, result.Status)
	}
	if result.ErrorDetail != nil {
		t.Fatalf("expected error detail cleared, got %q", *result.ErrorDetail)
	}
}

func TestRetryProcessedEventConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	created, err := svc.Ingest(context.Background(), ingestRequest("msg-keep"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	repo.setStatus(created.Event.ID, repository.StatusProcessed)

	_, err = svc.Retry(context.Background(), created.Event.ID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf(msgExpectedConflict, err)
	}
}
