package adapters

import (
	"context"
	"testing"

	"github.com/google/uuid"

	crmrepo "crmsync_backend/internal/crm/repository"
)

type fakeContactReader struct {
	contacts []crmrepo.Contact
}

func (f *fakeContactReader) GetContactByID(_ context.Context, _ uuid.UUID) (crmrepo.Contact, error) {
	return crmrepo.Contact{}, nil
}

func (f *fakeContactReader) GetContactByEmail(_ context.Context, _ string) (crmrepo.Contact, error) {
	return crmrepo.Contact{}, nil
}

func (f *fakeContactReader) ListContacts(_ context.Context) ([]crmrepo.Contact, error) {
	return f.contacts, nil
}

type fakeTaskStore struct {
	open []crmrepo.Task
}

func (f *fakeTaskStore) CreateTask(_ context.Context, _ crmrepo.CreateTaskParams) (crmrepo.Task, error) {
	return crmrepo.Task{}, nil
}

func (f *fakeTaskStore) GetTaskByID(_ context.Context, _ uuid.UUID) (crmrepo.Task, error) {
	return crmrepo.Task{}, nil
}

func (f *fakeTaskStore) ListTasks(_ context.Context) ([]crmrepo.Task, error) {
	return f.open, nil
}

func (f *fakeTaskStore) ListOpenTasks(_ context.Context) ([]crmrepo.Task, error) {
	return f.open, nil
}

func TestCRMLookupsSnapshotContacts(t *testing.T) {
	contact := crmrepo.Contact{
		ID: uuid.New(), Email: "jane@x.com", Name: "Jane Doe", Company: "Acme", Title: "CTO", Phone: "+12125550147",
	}
	lookups := NewCRMLookups(&fakeContactReader{contacts: []crmrepo.Contact{contact}}, &fakeTaskStore{})

	snapshots, err := lookups.ListContacts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].ID != contact.ID.String() || snapshots[0].Email != "jane@x.com" {
		t.Fatalf("unexpected snapshot %+v", snapshots[0])
	}
}

func TestCRMLookupsOnlyListOpenTasks(t *testing.T) {
	store := &fakeTaskStore{open: []crmrepo.Task{{ID: uuid.New(), Title: "Send proposal"}}}
	lookups := NewCRMLookups(&fakeContactReader{}, store)

	snapshots, err := lookups.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].Title != "Send proposal" {
		t.Fatalf("unexpected snapshots %+v", snapshots)
	}
}
