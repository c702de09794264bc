package transport

import (
	"time"

	"github.com/google/uuid"
)

// IngestEventRequest contains one normalized communication to ingest.
type IngestEventRequest struct {
	ExternalID string         `json:"externalId" validate:"required,max=512"`
	Kind       string         `json:"kind" validate:"required,oneof=email meeting"`
	Subject    string         `json:"subject" validate:"max=998"`
	Sender     string         `json:"sender" validate:"max=320"`
	Body       string         `json:"body" validate:"required"`
	ReceivedAt *time.Time     `json:"receivedAt,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ListEventsRequest filters source event listings.
type ListEventsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=pending processing processed error"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" validate:"omitempty,min=0"`
}

// SourceEventResponse represents a source event in API responses.
type SourceEventResponse struct {
	ID          uuid.UUID      `json:"id"`
	ExternalID  string         `json:"externalId"`
	Kind        string         `json:"kind"`
	Subject     string         `json:"subject"`
	Sender      string         `json:"sender"`
	Body        string         `json:"body"`
	ReceivedAt  time.Time      `json:"receivedAt"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ErrorDetail *string        `json:"errorDetail,omitempty"`
	ProcessedAt *time.Time     `json:"processedAt,omitempty"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
}

// IngestEventResponse reports the outcome of an ingest call.
// Status is "created" for a new event and "skipped" for a known external id.
type IngestEventResponse struct {
	Status string              `json:"status"`
	Event  SourceEventResponse `json:"event"`
}

// SourceEventListResponse wraps a list of source events.
type SourceEventListResponse struct {
	Items []SourceEventResponse `json:"items"`
	Total int                   `json:"total"`
}
