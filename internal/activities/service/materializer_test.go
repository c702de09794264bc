package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"crmsync_backend/internal/activities/repository"
	crmrepo "crmsync_backend/internal/crm/repository"
	"crmsync_backend/platform/apperr"
	"crmsync_backend/platform/logger"
)

const (
	msgWrongContactCount = "expected %d contacts, got %d"
	msgWrongField        = "expected %s %q, got %q"
)

// fakeCanonicalStore is an in-memory canonical store keyed by lowercased email.
type fakeCanonicalStore struct {
	contacts    map[string]crmrepo.Contact
	tasks       []crmrepo.Task
	deals       []crmrepo.Deal
	raceOnEmail string // simulates a concurrent insert winning for this email
}

func newFakeCanonicalStore() *fakeCanonicalStore {
	return &fakeCanonicalStore{contacts: make(map[string]crmrepo.Contact)}
}

func (f *fakeCanonicalStore) GetContactByEmail(_ context.Context, email string) (crmrepo.Contact, error) {
	contact, ok := f.contacts[strings.ToLower(email)]
	if !ok {
		return crmrepo.Contact{}, apperr.NotFound("contact not found")
	}
	return contact, nil
}

func (f *fakeCanonicalStore) CreateContact(_ context.Context, params crmrepo.CreateContactParams) (crmrepo.Contact, error) {
	key := strings.ToLower(params.Email)
	if key == strings.ToLower(f.raceOnEmail) && f.raceOnEmail != "" {
		f.contacts[key] = crmrepo.Contact{ID: uuid.New(), Email: params.Email}
		return crmrepo.Contact{}, apperr.Conflict("a contact with this email already exists")
	}
	if _, exists := f.contacts[key]; exists {
		return crmrepo.Contact{}, apperr.Conflict("a contact with this email already exists")
	}

	contact := crmrepo.Contact{
		ID:      uuid.New(),
		Email:   params.Email,
		Name:    params.Name,
		Phone:   params.Phone,
		Company: params.Company,
		Title:   params.Title,
	}
	f.contacts[key] = contact
	return contact, nil
}

func (f *fakeCanonicalStore) UpdateContactFields(_ context.Context, id uuid.UUID, fields map[string]string) (crmrepo.Contact, error) {
	for key, contact := range f.contacts {
		if contact.ID != id {
			continue
		}
		for field, value := range fields {
			switch field {
			case "name":
				contact.Name = value
			case "email":
				contact.Email = value
			case "phone":
				contact.Phone = value
			case "company":
				contact.Company = value
			case "title":
				contact.Title = value
			default:
				return crmrepo.Contact{}, apperr.Validation("unknown contact field: " + field)
			}
		}
		f.contacts[key] = contact
		return contact, nil
	}
	return crmrepo.Contact{}, apperr.NotFound("contact not found")
}

func (f *fakeCanonicalStore) CreateTask(_ context.Context, params crmrepo.CreateTaskParams) (crmrepo.Task, error) {
	task := crmrepo.Task{ID: uuid.New(), Title: params.Title, Details: params.Details, Status: "open", DueAt: params.DueAt}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeCanonicalStore) CreateDeal(_ context.Context, params crmrepo.CreateDealParams) (crmrepo.Deal, error) {
	deal := crmrepo.Deal{ID: uuid.New(), Name: params.Name, Stage: params.Stage, Amount: params.Amount}
	f.deals = append(f.deals, deal)
	return deal, nil
}

func newTestWriter(store CanonicalStore) *Writer {
	return NewWriter(store, logger.New("development"))
}

func contactActivity(email string) repository.Activity {
	return repository.Activity{
		ID:         uuid.New(),
		EntityType: repository.EntityContact,
		Action:     repository.ActionCreate,
		Payload: repository.Payload{
			Contact: &repository.ContactPayload{Name: "Jane Doe", Email: email},
		},
	}
}

func TestMaterializeContactCreate(t *testing.T) {
	store := newFakeCanonicalStore()
	writer := newTestWriter(store)

	outcome, err := writer.Materialize(context.Background(), contactActivity("jane@x.com"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf(msgWrongOutcome, OutcomeCreated, outcome)
	}
	if len(store.contacts) != 1 {
		t.Fatalf(msgWrongContactCount, 1, len(store.contacts))
	}
}

func TestMaterializeContactCreateExistingEmailReportsExisted(t *testing.T) {
	store := newFakeCanonicalStore()
	writer := newTestWriter(store)

	if _, err := writer.Materialize(context.Background(), contactActivity("jane@x.com")); err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	// Same email, different case: the re-check must still find it.
	outcome, err := writer.Materialize(context.Background(), contactActivity("Jane@X.com"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if outcome != OutcomeExisted {
		t.Fatalf(msgWrongOutcome, OutcomeExisted, outcome)
	}
	if len(store.contacts) != 1 {
		t.Fatalf(msgWrongContactCount, 1, len(store.contacts))
	}
}

func TestMaterializeContactCreateLosingInsertRaceReportsExisted(t *testing.T) {
	store := newFakeCanonicalStore()
	store.raceOnEmail = "jane@x.com"
	writer := newTestWriter(store)

	outcome, err := writer.Materialize(context.Background(), contactActivity("jane@x.com"))
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if outcome != OutcomeExisted {
		t.Fatalf(msgWrongOutcome, OutcomeExisted, outcome)
	}
}

func TestMaterializeContactUpdateAppliesOnlyListedFields(t *testing.T) {
	store := newFakeCanonicalStore()
	writer := newTestWriter(store)

	contact, err := store.CreateContact(context.Background(), crmrepo.CreateContactParams{
		Email: "jane@x.com", Name: "Jane Doe", Title: "Engineer", Company: "Acme",
	})
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	activity := repository.Activity{
		ID:         uuid.New(),
		EntityType: repository.EntityContact,
		Action:     repository.ActionUpdate,
		Payload: repository.Payload{
			ContactUpdate: &repository.ContactUpdatePayload{
				ContactID: contact.ID,
				Changes: []repository.FieldChange{
					{Field: "title", OldValue: "Engineer", NewValue: "Senior Engineer"},
				},
			},
		},
	}

	outcome, err := writer.Materialize(context.Background(), activity)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf(msgWrongOutcome, OutcomeUpdated, outcome)
	}

	updated, err := store.GetContactByEmail(context.Background(), "jane@x.com")
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if updated.Title != "Senior Engineer" {
		t.Fatalf(msgWrongField, "title", "Senior Engineer", updated.Title)
	}
	if updated.Name != "Jane Doe" {
		t.Fatalf(msgWrongField, "name", "Jane Doe", updated.Name)
	}
	if updated.Company != "Acme" {
		t.Fatalf(msgWrongField, "company", "Acme", updated.Company)
	}
}

func TestMaterializeContactUpdateMissingTargetIsNotFound(t *testing.T) {
	store := newFakeCanonicalStore()
	writer := newTestWriter(store)

	activity := repository.Activity{
		ID:         uuid.New(),
		EntityType: repository.EntityContact,
		Action:     repository.ActionUpdate,
		Payload: repository.Payload{
			ContactUpdate: &repository.ContactUpdatePayload{
				ContactID: uuid.New(),
				Changes:   []repository.FieldChange{{Field: "title", NewValue: "CTO"}},
			},
		},
	}

	_, err := writer.Materialize(context.Background(), activity)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMaterializeTaskCreateAlwaysInserts(t *testing.T) {
	store := newFakeCanonicalStore()
	writer := newTestWriter(store)

	activity := repository.Activity{
		ID:         uuid.New(),
		EntityType: repository.EntityTask,
		Action:     repository.ActionCreate,
		Payload:    repository.Payload{Task: &repository.TaskPayload{Title: "Send proposal"}},
	}

	for i := 0; i < 2; i++ {
		outcome, err := writer.Materialize(context.Background(), activity)
		if err != nil {
			t.Fatalf(msgUnexpectedErr, err)
		}
		if outcome != OutcomeCreated {
			t.Fatalf(msgWrongOutcome, OutcomeCreated, outcome)
		}
	}
	if len(store.tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(store.tasks))
	}
}

func TestMaterializeDealCreate(t *testing.T) {
	store := newFakeCanonicalStore()
	writer := newTestWriter(store)

	amount := 12500.0
	activity := repository.Activity{
		ID:         uuid.New(),
		EntityType: repository.EntityDeal,
		Action:     repository.ActionCreate,
		Payload:    repository.Payload{Deal: &repository.DealPayload{Name: "Acme renewal", Amount: &amount}},
	}

	outcome, err := writer.Materialize(context.Background(), activity)
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf(msgWrongOutcome, OutcomeCreated, outcome)
	}
	if len(store.deals) != 1 {
		t.Fatalf("expected 1 deal, got %d", len(store.deals))
	}
}

func TestMaterializeRejectsUnsupportedShape(t *testing.T) {
	store := newFakeCanonicalStore()
	writer := newTestWriter(store)

	activity := repository.Activity{
		ID:         uuid.New(),
		EntityType: repository.EntityTask,
		Action:     repository.ActionUpdate,
	}

	if _, err := writer.Materialize(context.Background(), activity); err == nil {
		t.Fatal("expected unsupported shape error")
	}
}
