package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Contact is a canonical CRM contact. Email is the uniqueness key,
// case-insensitive and enforced by the store.
type Contact struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Company   string    `db:"company"`
	Title     string    `db:"title"`
	CreatedAt string    `db:"created_at"`
	UpdatedAt string    `db:"updated_at"`
}

// Task is a canonical CRM task. Tasks carry no natural uniqueness key;
// duplicate suppression happens at extraction time.
type Task struct {
	ID        uuid.UUID  `db:"id"`
	Title     string     `db:"title"`
	Details   string     `db:"details"`
	Status    string     `db:"status"`
	DueAt     *time.Time `db:"due_at"`
	CreatedAt string     `db:"created_at"`
	UpdatedAt string     `db:"updated_at"`
}

// Deal is a canonical CRM deal.
type Deal struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Stage     string    `db:"stage"`
	Amount    *float64  `db:"amount"`
	CreatedAt string    `db:"created_at"`
	UpdatedAt string    `db:"updated_at"`
}

// CreateContactParams contains parameters for creating a contact.
type CreateContactParams struct {
	Email   string
	Name    string
	Phone   string
	Company string
	Title   string
}

// CreateTaskParams contains parameters for creating a task.
type CreateTaskParams struct {
	Title   string
	Details string
	DueAt   *time.Time
}

// CreateDealParams contains parameters for creating a deal.
type CreateDealParams struct {
	Name   string
	Stage  string
	Amount *float64
}

// ContactReader provides read operations for contacts.
type ContactReader interface {
	GetContactByID(ctx context.Context, id uuid.UUID) (Contact, error)
	// GetContactByEmail matches case-insensitively.
	GetContactByEmail(ctx context.Context, email string) (Contact, error)
	ListContacts(ctx context.Context) ([]Contact, error)
}

// ContactWriter provides write operations for contacts.
type ContactWriter interface {
	CreateContact(ctx context.Context, params CreateContactParams) (Contact, error)
	// UpdateContactFields applies only the given field values to the contact.
	// Keys outside the allowed contact field set are rejected.
	UpdateContactFields(ctx context.Context, id uuid.UUID, fields map[string]string) (Contact, error)
}

// TaskStore provides task operations.
type TaskStore interface {
	CreateTask(ctx context.Context, params CreateTaskParams) (Task, error)
	GetTaskByID(ctx context.Context, id uuid.UUID) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	ListOpenTasks(ctx context.Context) ([]Task, error)
}

// DealStore provides deal operations.
type DealStore interface {
	CreateDeal(ctx context.Context, params CreateDealParams) (Deal, error)
	GetDealByID(ctx context.Context, id uuid.UUID) (Deal, error)
	ListDeals(ctx context.Context) ([]Deal, error)
}

// Repository combines all canonical store operations.
type Repository interface {
	ContactReader
	ContactWriter
	TaskStore
	DealStore
}
