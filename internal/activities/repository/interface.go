package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which canonical entity an activity proposes to change.
type EntityType string

const (
	EntityContact EntityType = "contact"
	EntityTask    EntityType = "task"
	EntityDeal    EntityType = "deal"
)

// Action is the proposed canonical-store mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Status is the review lifecycle state of an activity. Transitions are only
// pending to accepted or pending to rejected; terminal states are immutable.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// FieldChange is one field-level diff inside a contact update proposal.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// ContactPayload is the proposed data for a new contact.
type ContactPayload struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

// ContactUpdatePayload references an existing contact and carries an ordered
// list of field-level changes.
type ContactUpdatePayload struct {
	ContactID uuid.UUID     `json:"contactId"`
	Changes   []FieldChange `json:"changes"`
}

// TaskPayload is the proposed data for a new task.
type TaskPayload struct {
	Title   string     `json:"title"`
	Details string     `json:"details,omitempty"`
	DueAt   *time.Time `json:"dueAt,omitempty"`
}

// DealPayload is the proposed data for a new deal.
type DealPayload struct {
	Name   string   `json:"name"`
	Stage  string   `json:"stage,omitempty"`
	Amount *float64 `json:"amount,omitempty"`
}

// Payload is the tagged union of proposal data. Exactly one member matching
// the activity's entity type and action is set.
type Payload struct {
	Contact       *ContactPayload       `json:"contact,omitempty"`
	ContactUpdate *ContactUpdatePayload `json:"contactUpdate,omitempty"`
	Task          *TaskPayload          `json:"task,omitempty"`
	Deal          *DealPayload          `json:"deal,omitempty"`
}

// Provenance carries where a proposal came from.
type Provenance struct {
	Subject    string
	Sender     string
	ReceivedAt *time.Time
}

// Activity is one staged, reviewable proposal produced from a source event.
type Activity struct {
	ID            uuid.UUID  `db:"id"`
	SourceEventID *uuid.UUID `db:"source_event_id"`
	EntityType    EntityType `db:"entity_type"`
	Action        Action     `db:"action"`
	Payload       Payload    `db:"payload"`
	Provenance    Provenance
	Status        Status     `db:"status"`
	ProcessedAt   *time.Time `db:"processed_at"`
	CreatedAt     string     `db:"created_at"`
}

// NewActivity contains the data for staging one activity.
type NewActivity struct {
	EntityType EntityType
	Action     Action
	Payload    Payload
}

// ListParams filters and pages activity listings.
type ListParams struct {
	Status        *Status
	SourceEventID *uuid.UUID
	Limit         int
	Offset        int
}

// ActivityReader provides read operations for activities.
type ActivityReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Activity, error)
	List(ctx context.Context, params ListParams) ([]Activity, error)
}

// ActivityWriter provides write operations for activities.
type ActivityWriter interface {
	// CreateBatch stages all proposals of one source event in a single
	// transaction: either every activity is stored or none are.
	CreateBatch(ctx context.Context, sourceEventID uuid.UUID, prov Provenance, items []NewActivity) ([]Activity, error)
	// TransitionFromPending applies a compare-and-set status change. It fails
	// with a not-found error when the id is unknown and a conflict error when
	// the activity has already been decided; it never touches terminal states.
	TransitionFromPending(ctx context.Context, id uuid.UUID, to Status) (Activity, error)
}

// Repository combines all activity repository operations.
type Repository interface {
	ActivityReader
	ActivityWriter
}
