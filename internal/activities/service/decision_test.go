package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"crmsync_backend/internal/activities/repository"
	"crmsync_backend/platform/apperr"
	"crmsync_backend/platform/logger"
)

const (
	msgUnexpectedErr    = "unexpected error: %v"
	msgWrongResult      = "expected result %q, got %q"
	msgWrongOutcome     = "expected outcome %q, got %q"
	msgWrongStatus      = "expected status %q, got %q"
	msgExpectedConflict = "expected conflict error, got %v"
	msgWrongWriteCount  = "expected %d canonical writes, got %d"
)

type fakeActivityRepo struct {
	activities map[uuid.UUID]repository.Activity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{activities: make(map[uuid.UUID]repository.Activity)}
}

func (f *fakeActivityRepo) add(activity repository.Activity) repository.Activity {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.Status == "" {
		activity.Status = repository.StatusPending
	}
	f.activities[activity.ID] = activity
	return activity
}

func (f *fakeActivityRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Activity, error) {
	activity, ok := f.activities[id]
	if !ok {
		return repository.Activity{}, apperr.NotFound("activity not found")
	}
	return activity, nil
}

func (f *fakeActivityRepo) List(_ context.Context, params repository.ListParams) ([]repository.Activity, error) {
	var results []repository.Activity
	for _, activity := range f.activities {
		if params.Status != nil && activity.Status != *params.Status {
			continue
		}
		results = append(results, activity)
	}
	return results, nil
}

func (f *fakeActivityRepo) CreateBatch(_ context.Context, sourceEventID uuid.UUID, prov repository.Provenance, items []repository.NewActivity) ([]repository.Activity, error) {
	results := make([]repository.Activity, 0, len(items))
	for _, item := range items {
		activity := f.add(repository.Activity{
			SourceEventID: &sourceEventID,
			EntityType:    item.EntityType,
			Action:        item.Action,
			Payload:       item.Payload,
			Provenance:    prov,
		})
		results = append(results, activity)
	}
	return results, nil
}

func (f *fakeActivityRepo) TransitionFromPending(_ context.Context, id uuid.UUID, to repository.Status) (repository.Activity, error) {
	activity, ok := f.activities[id]
	if !ok {
		return repository.Activity{}, apperr.NotFound("activity not found")
	}
	if activity.Status != repository.StatusPending {
		return repository.Activity{}, apperr.Conflict("activity has already been decided")
	}
	activity.Status = to
	f.activities[id] = activity
	return activity, nil
}

// countingMaterializer records calls and optionally fails every attempt.
type countingMaterializer struct {
	calls   int
	outcome Outcome
	err     error
}

func (m *countingMaterializer) Materialize(_ context.Context, _ repository.Activity) (Outcome, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.outcome, nil
}

func contactCreateActivity() repository.Activity {
	return repository.Activity{
		EntityType: repository.EntityContact,
		Action:     repository.ActionCreate,
		Payload: repository.Payload{
			Contact: &repository.ContactPayload{Name: "Jane Doe", Email: "jane@x.com"},
		},
	}
}

func TestAcceptMaterializesOnce(t *testing.T) {
	repo := newFakeActivityRepo()
	activity := repo.add(contactCreateActivity())
	mat := &countingMaterializer{outcome: OutcomeCreated}
	svc := New(repo, mat, nil, logger.New("development"))

	result, err := svc.Accept(context.Background(), activity.ID)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if result.Result != string(repository.StatusAccepted) {
		t.Fatalf(msgWrongResult, repository.StatusAccepted, result.Result)
	}
	if result.Outcome != string(OutcomeCreated) {
		t.Fatalf(msgWrongOutcome, OutcomeCreated, result.Outcome)
	}
	if mat.calls != 1 {
		t.Fatalf(msgWrongWriteCount, 1, mat.calls)
	}
}

func TestAcceptTwiceIsConflictWithoutSecondWrite(t *testing.T) {
	repo := newFakeActivityRepo()
	activity := repo.add(contactCreateActivity())
	mat := &countingMaterializer{outcome: OutcomeCreated}
	svc := New(repo, mat, nil, logger.New("development"))

	if _, err := svc.Accept(context.Background(), activity.ID); err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	_, err := svc.Accept(context.Background(), activity.ID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf(msgExpectedConflict, err)
	}
	if mat.calls != 1 {
		t.Fatalf(msgWrongWriteCount, 1, mat.calls)
	}
}

func TestRejectThenAcceptLeavesStatusUnchanged(t *testing.T) {
	repo := newFakeActivityRepo()
	activity := repo.add(contactCreateActivity())
	mat := &countingMaterializer{outcome: OutcomeCreated}
	svc := New(repo, mat, nil, logger.New("development"))

	if _, err := svc.Reject(context.Background(), activity.ID); err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	_, err := svc.Accept(context.Background(), activity.ID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf(msgExpectedConflict, err)
	}

	stored, err := repo.GetByID(context.Background(), activity.ID)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if stored.Status != repository.StatusRejected {
		t.Fatalf(msgWrongStatus, repository.StatusRejected, stored.Status)
	}
	if mat.calls != 0 {
		t.Fatalf(msgWrongWriteCount, 0, mat.calls)
	}
}

func TestRejectDoesNotMaterialize(t *testing.T) {
	repo := newFakeActivityRepo()
	activity := repo.add(contactCreateActivity())
	mat := &countingMaterializer{outcome: OutcomeCreated}
	svc := New(repo, mat, nil, logger.New("development"))

	result, err := svc.Reject(context.Background(), activity.ID)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if result.Result != string(repository.StatusRejected) {
		t.Fatalf(msgWrongResult, repository.StatusRejected, result.Result)
	}
	if mat.calls != 0 {
		t.Fatalf(msgWrongWriteCount, 0, mat.calls)
	}
}

func TestAcceptMaterializeFailureKeepsActivityAccepted(t *testing.T) {
	repo := newFakeActivityRepo()
	activity := repo.add(contactCreateActivity())
	mat := &countingMaterializer{err: apperr.Unavailable("canonical store unreachable")}
	svc := New(repo, mat, nil, logger.New("development"))

	_, err := svc.Accept(context.Background(), activity.ID)
	if err == nil {
		t.Fatal("expected materialization failure to surface")
	}
	if apperr.GetKind(err) == apperr.KindConflict {
		t.Fatalf("materialization failure must not look like a decision conflict: %v", err)
	}

	stored, getErr := repo.GetByID(context.Background(), activity.ID)
	if getErr != nil {
		t.Fatalf(msgUnexpectedErr, getErr)
	}
	if stored.Status != repository.StatusAccepted {
		t.Fatalf(msgWrongStatus, repository.StatusAccepted, stored.Status)
	}
}

func TestAcceptUnknownActivityIsNotFound(t *testing.T) {
	repo := newFakeActivityRepo()
	svc := New(repo, &countingMaterializer{}, nil, logger.New("development"))

	_, err := svc.Accept(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
