package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crmsync_backend/internal/events"
	"crmsync_backend/internal/inbox/repository"
	"crmsync_backend/internal/inbox/transport"
	"crmsync_backend/platform/logger"
)

const (
	// IngestCreated means a new source event was stored.
	IngestCreated = "created"
	// IngestSkipped means the external id was already known.
	IngestSkipped = "skipped"
)

// Service provides business logic for the source event inbox.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new inbox service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Ingest stores one normalized communication. Re-ingesting a known external
// id reports "skipped" and has no side effects.
func (s *Service) Ingest(ctx context.Context, req transport.IngestEventRequest) (transport.IngestEventResponse, error) {
	receivedAt := time.Now()
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	event, created, err := s.repo.Ingest(ctx, repository.IngestParams{
		ExternalID: req.ExternalID,
		Kind:       repository.Kind(req.Kind),
		Subject:    req.Subject,
		Sender:     req.Sender,
		Body:       req.Body,
		ReceivedAt: receivedAt,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return transport.IngestEventResponse{}, err
	}

	status := IngestSkipped
	if created {
		status = IngestCreated
		s.log.Info("source event ingested", "id", event.ID, "externalId", event.ExternalID, "kind", event.Kind)
		if s.bus != nil {
			s.bus.Publish(ctx, events.SourceEventIngested{
				BaseEvent:     events.NewBaseEvent(),
				SourceEventID: event.ID,
				ExternalID:    event.ExternalID,
				Kind:          string(event.Kind),
				Sender:        event.Sender,
			})
		}
	}

	return transport.IngestEventResponse{Status: status, Event: toResponse(event)}, nil
}

// GetByID retrieves a source event by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.SourceEventResponse, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.SourceEventResponse{}, err
	}
	return toResponse(event), nil
}

// List retrieves source events with an optional status filter.
func (s *Service) List(ctx context.Context, req transport.ListEventsRequest) (transport.SourceEventListResponse, error) {
	params := repository.ListParams{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		status := repository.Status(req.Status)
		params.Status = &status
	}

	items, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.SourceEventListResponse{}, err
	}

	responses := make([]transport.SourceEventResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}

	return transport.SourceEventListResponse{Items: responses, Total: len(responses)}, nil
}

// Retry resets an error event back to pending so the next sync cycle picks
// it up again.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (transport.SourceEventResponse, error) {
	if err := s.repo.ResetToPending(ctx, id); err != nil {
		return transport.SourceEventResponse{}, err
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.SourceEventResponse{}, err
	}

	s.log.Info("source event reset for retry", "id", id)
	return toResponse(event), nil
}

func toResponse(event repository.SourceEvent) transport.SourceEventResponse {
	return transport.SourceEventResponse{
		ID:          event.ID,
		ExternalID:  event.ExternalID,
		Kind:        string(event.Kind),
		Subject:     event.Subject,
		Sender:      event.Sender,
		Body:        event.Body,
		ReceivedAt:  event.ReceivedAt,
		Status:      string(event.Status),
		Metadata:    event.Metadata,
		ErrorDetail: event.ErrorDetail,
		ProcessedAt: event.ProcessedAt,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}
