// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"crmsync_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Inbox Domain Events
// =============================================================================

// SourceEventIngested is published when a new communication enters the inbox.
// Duplicate ingests (same external id) do not publish.
type SourceEventIngested struct {
	BaseEvent
	SourceEventID uuid.UUID `json:"sourceEventId"`
	ExternalID    string    `json:"externalId"`
	Kind          string    `json:"kind"`
	Sender        string    `json:"sender"`
}

func (e SourceEventIngested) EventName() string { return "inbox.source_event.ingested" }

// ExtractionFailed is published when extraction for a source event fails and
// the event is marked error.
type ExtractionFailed struct {
	BaseEvent
	SourceEventID uuid.UUID `json:"sourceEventId"`
	Detail        string    `json:"detail"`
}

func (e ExtractionFailed) EventName() string { return "inbox.extraction.failed" }

// =============================================================================
// Activity Domain Events
// =============================================================================

// ActivityStaged is published once per activity created from a source event.
type ActivityStaged struct {
	BaseEvent
	ActivityID    uuid.UUID `json:"activityId"`
	SourceEventID uuid.UUID `json:"sourceEventId"`
	EntityType    string    `json:"entityType"`
	Action        string    `json:"action"`
}

func (e ActivityStaged) EventName() string { return "activities.staged" }

// ActivityAccepted is published after an activity is accepted and its
// materialization attempted. Outcome is "created", "updated" or "existed";
// MaterializeError carries the failure detail when the canonical write failed.
type ActivityAccepted struct {
	BaseEvent
	ActivityID       uuid.UUID `json:"activityId"`
	EntityType       string    `json:"entityType"`
	Action           string    `json:"action"`
	Outcome          string    `json:"outcome"`
	MaterializeError string    `json:"materializeError,omitempty"`
}

func (e ActivityAccepted) EventName() string { return "activities.accepted" }

// ActivityRejected is published when an activity is rejected.
type ActivityRejected struct {
	BaseEvent
	ActivityID uuid.UUID `json:"activityId"`
	EntityType string    `json:"entityType"`
}

func (e ActivityRejected) EventName() string { return "activities.rejected" }

// =============================================================================
// Sync Domain Events
// =============================================================================

// SyncCycleCompleted is published at the end of every sync cycle with the
// aggregate counts; UI gateways use it to wake review screens.
type SyncCycleCompleted struct {
	BaseEvent
	Trigger           string        `json:"trigger"`
	Ingested          int           `json:"ingested"`
	Processed         int           `json:"processed"`
	Errored           int           `json:"errored"`
	ActivitiesCreated int           `json:"activitiesCreated"`
	AutoAccepted      int           `json:"autoAccepted"`
	Duration          time.Duration `json:"duration"`
}

func (e SyncCycleCompleted) EventName() string { return "sync.cycle.completed" }
