package transport

import (
	"time"

	"github.com/google/uuid"

	"crmsync_backend/internal/activities/repository"
)

// ListActivitiesRequest filters activity listings.
type ListActivitiesRequest struct {
	Status        string `form:"status" validate:"omitempty,oneof=pending accepted rejected"`
	SourceEventID string `form:"sourceEventId" validate:"omitempty,uuid"`
	Limit         int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset        int    `form:"offset" validate:"omitempty,min=0"`
}

// ActivityResponse represents a staged proposal in API responses.
type ActivityResponse struct {
	ID               uuid.UUID          `json:"id"`
	SourceEventID    *uuid.UUID         `json:"sourceEventId,omitempty"`
	EntityType       string             `json:"entityType"`
	Action           string             `json:"action"`
	Payload          repository.Payload `json:"payload"`
	SourceSubject    string             `json:"sourceSubject,omitempty"`
	SourceSender     string             `json:"sourceSender,omitempty"`
	SourceReceivedAt *time.Time         `json:"sourceReceivedAt,omitempty"`
	Status           string             `json:"status"`
	ProcessedAt      *time.Time         `json:"processedAt,omitempty"`
	CreatedAt        string             `json:"createdAt"`
}

// ActivityListResponse wraps a list of activities.
type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
	Total int                `json:"total"`
}

// DecisionResponse reports the outcome of an accept or reject call.
// Outcome is set on accept only: "created", "updated" or "existed".
type DecisionResponse struct {
	Result   string           `json:"result"`
	Outcome  string           `json:"outcome,omitempty"`
	Activity ActivityResponse `json:"activity"`
}
