package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the processing lifecycle state of a source event.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
)

// Kind identifies the communication type of a source event.
type Kind string

const (
	KindEmail   Kind = "email"
	KindMeeting Kind = "meeting"
)

// SourceEvent is one normalized inbound communication.
type SourceEvent struct {
	ID          uuid.UUID      `db:"id"`
	ExternalID  string         `db:"external_id"`
	Kind        Kind           `db:"kind"`
	Subject     string         `db:"subject"`
	Sender      string         `db:"sender"`
	Body        string         `db:"body"`
	ReceivedAt  time.Time      `db:"received_at"`
	Status      Status         `db:"status"`
	Metadata    map[string]any `db:"metadata"`
	ErrorDetail *string        `db:"error_detail"`
	ProcessedAt *time.Time     `db:"processed_at"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

// IngestParams contains parameters for ingesting a source event.
type IngestParams struct {
	ExternalID string
	Kind       Kind
	Subject    string
	Sender     string
	Body       string
	ReceivedAt time.Time
	Metadata   map[string]any
}

// ListParams filters and pages source event listings.
type ListParams struct {
	Status *Status
	Limit  int
	Offset int
}

// EventReader provides read operations for source events.
type EventReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (SourceEvent, error)
	List(ctx context.Context, params ListParams) ([]SourceEvent, error)
	ListPending(ctx context.Context, limit int) ([]SourceEvent, error)
}

// EventWriter provides write operations for source events.
type EventWriter interface {
	// Ingest stores a new source event. Re-ingesting a known external id is a
	// no-op: the existing event is returned with created=false, never an error.
	Ingest(ctx context.Context, params IngestParams) (SourceEvent, bool, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkProcessed(ctx context.Context, id uuid.UUID, summary map[string]int) error
	MarkError(ctx context.Context, id uuid.UUID, detail string) error
	// ResetToPending moves an error or processing event back to pending so the
	// next cycle picks it up again. Pending and processed events are rejected.
	ResetToPending(ctx context.Context, id uuid.UUID) error
}

// Repository combines all source event repository operations.
type Repository interface {
	EventReader
	EventWriter
}

// WatermarkStore tracks per-source sync high-water marks.
type WatermarkStore interface {
	GetWatermark(ctx context.Context, source string) (string, bool, error)
	SetWatermark(ctx context.Context, source, value string) error
}
