package service

import (
	"context"

	"github.com/google/uuid"

	"crmsync_backend/internal/activities/repository"
	"crmsync_backend/internal/activities/transport"
	"crmsync_backend/internal/events"
	"crmsync_backend/platform/apperr"
	"crmsync_backend/platform/logger"
)

// Service is the decision engine: it owns the pending-to-terminal activity
// transitions and triggers materialization on accept.
type Service struct {
	repo repository.Repository
	mat  Materializer
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new decision engine service.
func New(repo repository.Repository, mat Materializer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, mat: mat, bus: bus, log: log}
}

// Accept transitions the activity pending-to-accepted and materializes it.
// The compare-and-set transition runs first, so a concurrent or repeated
// accept yields a conflict and never a second materialization. When the
// canonical write fails the activity stays accepted: the decision is final
// and the failure is surfaced for remediation instead of being hidden by a
// status revert.
func (s *Service) Accept(ctx context.Context, id uuid.UUID) (transport.DecisionResponse, error) {
	activity, err := s.repo.TransitionFromPending(ctx, id, repository.StatusAccepted)
	if err != nil {
		return transport.DecisionResponse{}, err
	}

	outcome, matErr := s.mat.Materialize(ctx, activity)
	if matErr != nil {
		s.log.Error("materialization failed, activity remains accepted",
			"activityId", activity.ID, "entityType", activity.EntityType, "error", matErr)
		s.publishAccepted(ctx, activity, "", matErr)
		return transport.DecisionResponse{}, materializeFailure(activity, matErr)
	}

	s.log.Info("activity accepted",
		"activityId", activity.ID, "entityType", activity.EntityType, "action", activity.Action, "outcome", outcome)
	s.publishAccepted(ctx, activity, outcome, nil)

	return transport.DecisionResponse{
		Result:   string(repository.StatusAccepted),
		Outcome:  string(outcome),
		Activity: toResponse(activity),
	}, nil
}

// Reject transitions the activity pending-to-rejected. No canonical-store
// mutation happens; the state is terminal.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (transport.DecisionResponse, error) {
	activity, err := s.repo.TransitionFromPending(ctx, id, repository.StatusRejected)
	if err != nil {
		return transport.DecisionResponse{}, err
	}

	s.log.Info("activity rejected", "activityId", activity.ID, "entityType", activity.EntityType)
	if s.bus != nil {
		s.bus.Publish(ctx, events.ActivityRejected{
			BaseEvent:  events.NewBaseEvent(),
			ActivityID: activity.ID,
			EntityType: string(activity.EntityType),
		})
	}

	return transport.DecisionResponse{
		Result:   string(repository.StatusRejected),
		Activity: toResponse(activity),
	}, nil
}

// GetByID retrieves an activity by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ActivityResponse, error) {
	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	return toResponse(activity), nil
}

// List retrieves activities with optional status and source event filters.
func (s *Service) List(ctx context.Context, req transport.ListActivitiesRequest) (transport.ActivityListResponse, error) {
	params := repository.ListParams{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		status := repository.Status(req.Status)
		params.Status = &status
	}
	if req.SourceEventID != "" {
		sourceEventID, err := uuid.Parse(req.SourceEventID)
		if err != nil {
			return transport.ActivityListResponse{}, apperr.BadRequest("invalid source event ID")
		}
		params.SourceEventID = &sourceEventID
	}

	items, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ActivityListResponse{}, err
	}

	responses := make([]transport.ActivityResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	return transport.ActivityListResponse{Items: responses, Total: len(responses)}, nil
}

func (s *Service) publishAccepted(ctx context.Context, activity repository.Activity, outcome Outcome, matErr error) {
	if s.bus == nil {
		return
	}

	event := events.ActivityAccepted{
		BaseEvent:  events.NewBaseEvent(),
		ActivityID: activity.ID,
		EntityType: string(activity.EntityType),
		Action:     string(activity.Action),
		Outcome:    string(outcome),
	}
	if matErr != nil {
		event.MaterializeError = matErr.Error()
	}
	s.bus.Publish(ctx, event)
}

// materializeFailure maps a canonical-write failure for the API caller. The
// message and details make it distinguishable from a decision conflict: the
// decision stood, only the write needs remediation or a manual retry.
func materializeFailure(activity repository.Activity, err error) error {
	details := map[string]string{
		"activityId": activity.ID.String(),
		"status":     string(repository.StatusAccepted),
		"cause":      err.Error(),
	}

	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "materialization failed: target entity missing; activity remains accepted", err).
			WithDetails(details)
	}
	return apperr.Wrap(apperr.KindInternal, "materialization failed; activity remains accepted", err).
		WithDetails(details)
}

func toResponse(activity repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:               activity.ID,
		SourceEventID:    activity.SourceEventID,
		EntityType:       string(activity.EntityType),
		Action:           string(activity.Action),
		Payload:          activity.Payload,
		SourceSubject:    activity.Provenance.Subject,
		SourceSender:     activity.Provenance.Sender,
		SourceReceivedAt: activity.Provenance.ReceivedAt,
		Status:           string(activity.Status),
		ProcessedAt:      activity.ProcessedAt,
		CreatedAt:        activity.CreatedAt,
	}
}
