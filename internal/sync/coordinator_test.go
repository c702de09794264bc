package sync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	acttransport "crmsync_backend/internal/activities/transport"
	"crmsync_backend/internal/extraction"
	"crmsync_backend/platform/logger"
)

// fakeSource ingests canned communications into the event store on Pull.
type fakeSource struct {
	name  string
	store *fakeEventStore
	comms []extraction.Communication
	err   error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Pull(_ context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	for _, comm := range s.comms {
		s.store.add(s.name+"-"+comm.Subject, comm.Subject, comm.Body)
	}
	return len(s.comms), nil
}

// fakeDecider records accepted activity ids.
type fakeDecider struct {
	mu       sync.Mutex
	accepted []uuid.UUID
	err      error
}

func (d *fakeDecider) Accept(_ context.Context, id uuid.UUID) (acttransport.DecisionResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return acttransport.DecisionResponse{}, d.err
	}
	d.accepted = append(d.accepted, id)
	return acttransport.DecisionResponse{Result: "accepted"}, nil
}

func TestRunCyclePullsExtractsAndStages(t *testing.T) {
	store := newFakeEventStore()
	stager := newFakeStager()
	ext := newFakeExtractor()
	ext.results["Intro call"] = extraction.Result{
		NewContacts: []extraction.ContactProposal{{Name: "Jane Doe", Email: "jane@x.com"}},
		NewTasks:    []extraction.TaskProposal{{Title: "Send proposal"}},
	}

	source := &fakeSource{
		name:  "mailbox",
		store: store,
		comms: []extraction.Communication{{Subject: "Intro call", Body: "Met Jane, send the proposal."}},
	}
	coordinator := NewCoordinator(
		[]Source{source},
		newTestOrchestrator(store, stager, ext),
		nil, false, nil, logger.New("development"),
	)

	result, err := coordinator.RunCycle(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	if result.Ingested != 1 {
		t.Fatalf("expected 1 ingested, got %d", result.Ingested)
	}
	if result.Processed != 1 {
		t.Fatalf(msgWrongProcessed, 1, result.Processed)
	}
	if result.ActivitiesCreated != 2 {
		t.Fatalf("expected 2 staged activities, got %d", result.ActivitiesCreated)
	}
	if result.AutoAccepted != 0 {
		t.Fatalf("expected 0 auto-accepted, got %d", result.AutoAccepted)
	}
}

func TestRunCycleAutoApprovesStagedActivities(t *testing.T) {
	store := newFakeEventStore()
	stager := newFakeStager()
	ext := newFakeExtractor()
	store.add("msg-1", "Intro call", "Met Jane.")
	ext.results["Intro call"] = extraction.Result{
		NewContacts: []extraction.ContactProposal{{Email: "jane@x.com"}},
		NewTasks:    []extraction.TaskProposal{{Title: "Send proposal"}},
	}

	decider := &fakeDecider{}
	coordinator := NewCoordinator(
		nil,
		newTestOrchestrator(store, stager, ext),
		decider, true, nil, logger.New("development"),
	)

	result, err := coordinator.RunCycle(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	if result.AutoAccepted != 2 {
		t.Fatalf("expected 2 auto-accepted, got %d", result.AutoAccepted)
	}
	if len(decider.accepted) != 2 {
		t.Fatalf("expected 2 accepts, got %d", len(decider.accepted))
	}
}

func TestRunCycleContinuesPastFailingSource(t *testing.T) {
	store := newFakeEventStore()
	stager := newFakeStager()
	ext := newFakeExtractor()
	ext.results["Intro call"] = extraction.Result{}

	broken := &fakeSource{name: "calendar", store: store, err: errors.New("connection refused")}
	working := &fakeSource{
		name:  "mailbox",
		store: store,
		comms: []extraction.Communication{{Subject: "Intro call", Body: "body"}},
	}
	coordinator := NewCoordinator(
		[]Source{broken, working},
		newTestOrchestrator(store, stager, ext),
		nil, false, nil, logger.New("development"),
	)

	result, err := coordinator.RunCycle(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	if result.Ingested != 1 {
		t.Fatalf("expected 1 ingested, got %d", result.Ingested)
	}
	if result.Processed != 1 {
		t.Fatalf(msgWrongProcessed, 1, result.Processed)
	}
}
