package service

import (
	"context"

	"github.com/google/uuid"

	"crmsync_backend/internal/activities/repository"
	crmrepo "crmsync_backend/internal/crm/repository"
	"crmsync_backend/platform/apperr"
	"crmsync_backend/platform/logger"
)

// Outcome describes what a materialization did to the canonical store.
type Outcome string

const (
	// OutcomeCreated means a new canonical entity was inserted.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means an existing entity was modified.
	OutcomeUpdated Outcome = "updated"
	// OutcomeExisted means the proposed entity already existed, so the
	// activity was satisfied without a write.
	OutcomeExisted Outcome = "existed"
)

// ContactStore is the slice of the canonical store the materializer needs for
// contacts.
type ContactStore interface {
	GetContactByEmail(ctx context.Context, email string) (crmrepo.Contact, error)
	CreateContact(ctx context.Context, params crmrepo.CreateContactParams) (crmrepo.Contact, error)
	UpdateContactFields(ctx context.Context, id uuid.UUID, fields map[string]string) (crmrepo.Contact, error)
}

// TaskStore is the slice of the canonical store the materializer needs for tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, params crmrepo.CreateTaskParams) (crmrepo.Task, error)
}

// DealStore is the slice of the canonical store the materializer needs for deals.
type DealStore interface {
	CreateDeal(ctx context.Context, params crmrepo.CreateDealParams) (crmrepo.Deal, error)
}

// CanonicalStore combines the canonical-store slices used by the materializer.
type CanonicalStore interface {
	ContactStore
	TaskStore
	DealStore
}

// Materializer converts one accepted activity into a canonical-store write.
type Materializer interface {
	Materialize(ctx context.Context, activity repository.Activity) (Outcome, error)
}

// Writer is the production materializer backed by the canonical store.
type Writer struct {
	store CanonicalStore
	log   *logger.Logger
}

// NewWriter creates a materializer over the canonical store.
func NewWriter(store CanonicalStore, log *logger.Logger) *Writer {
	return &Writer{store: store, log: log}
}

// Compile-time check that Writer implements Materializer.
var _ Materializer = (*Writer)(nil)

// Materialize applies the activity's payload to the canonical store. Each
// call performs at most one canonical write; the decision engine's
// compare-and-set guard ensures it runs at most once per activity.
func (w *Writer) Materialize(ctx context.Context, activity repository.Activity) (Outcome, error) {
	switch activity.EntityType {
	case repository.EntityContact:
		switch activity.Action {
		case repository.ActionCreate:
			return w.createContact(ctx, activity)
		case repository.ActionUpdate:
			return w.updateContact(ctx, activity)
		}
	case repository.EntityTask:
		if activity.Action == repository.ActionCreate {
			return w.createTask(ctx, activity)
		}
	case repository.EntityDeal:
		if activity.Action == repository.ActionCreate {
			return w.createDeal(ctx, activity)
		}
	}

	return "", apperr.Internal("unsupported activity shape").WithDetails(map[string]string{
		"entityType": string(activity.EntityType),
		"action":     string(activity.Action),
	})
}

// createContact re-checks email uniqueness immediately before inserting. Two
// activities proposing the same contact, or an out-of-band insert since
// staging, resolve to "existed" instead of a duplicate.
func (w *Writer) createContact(ctx context.Context, activity repository.Activity) (Outcome, error) {
	payload := activity.Payload.Contact
	if payload == nil || payload.Email == "" {
		return "", apperr.Internal("activity payload missing contact data")
	}

	if _, err := w.store.GetContactByEmail(ctx, payload.Email); err == nil {
		w.log.Info("contact already exists, skipping insert", "activityId", activity.ID, "email", payload.Email)
		return OutcomeExisted, nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return "", err
	}

	_, err := w.store.CreateContact(ctx, crmrepo.CreateContactParams{
		Email:   payload.Email,
		Name:    payload.Name,
		Phone:   payload.Phone,
		Company: payload.Company,
		Title:   payload.Title,
	})
	if err != nil {
		// A concurrent accept can win the insert between the re-check and
		// the write; that still satisfies the proposal.
		if apperr.Is(err, apperr.KindConflict) {
			w.log.Info("contact insert lost race, treating as existing", "activityId", activity.ID, "email", payload.Email)
			return OutcomeExisted, nil
		}
		return "", err
	}

	return OutcomeCreated, nil
}

// updateContact applies only the fields present in the change list.
func (w *Writer) updateContact(ctx context.Context, activity repository.Activity) (Outcome, error) {
	payload := activity.Payload.ContactUpdate
	if payload == nil || payload.ContactID == uuid.Nil {
		return "", apperr.Internal("activity payload missing contact update data")
	}

	fields := make(map[string]string, len(payload.Changes))
	for _, change := range payload.Changes {
		fields[change.Field] = change.NewValue
	}

	if _, err := w.store.UpdateContactFields(ctx, payload.ContactID, fields); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", apperr.NotFound("target contact no longer exists").WithDetails(map[string]string{
				"contactId": payload.ContactID.String(),
			})
		}
		return "", err
	}

	return OutcomeUpdated, nil
}

// createTask always inserts; tasks carry no enforced uniqueness and duplicate
// suppression happened at extraction time.
func (w *Writer) createTask(ctx context.Context, activity repository.Activity) (Outcome, error) {
	payload := activity.Payload.Task
	if payload == nil || payload.Title == "" {
		return "", apperr.Internal("activity payload missing task data")
	}

	_, err := w.store.CreateTask(ctx, crmrepo.CreateTaskParams{
		Title:   payload.Title,
		Details: payload.Details,
		DueAt:   payload.DueAt,
	})
	if err != nil {
		return "", err
	}

	return OutcomeCreated, nil
}

// createDeal always inserts, same rationale as tasks.
func (w *Writer) createDeal(ctx context.Context, activity repository.Activity) (Outcome, error) {
	payload := activity.Payload.Deal
	if payload == nil || payload.Name == "" {
		return "", apperr.Internal("activity payload missing deal data")
	}

	_, err := w.store.CreateDeal(ctx, crmrepo.CreateDealParams{
		Name:   payload.Name,
		Stage:  payload.Stage,
		Amount: payload.Amount,
	})
	if err != nil {
		return "", err
	}

	return OutcomeCreated, nil
}
