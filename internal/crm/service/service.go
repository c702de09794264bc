package service

import (
	"context"

	"github.com/google/uuid"

	"crmsync_backend/internal/crm/repository"
	"crmsync_backend/internal/crm/transport"
	"crmsync_backend/platform/logger"
)

// Service provides read surfaces over the canonical store. Writes go through
// the materializer, never through this service.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new canonical store service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetContact retrieves a contact by ID.
func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (transport.ContactResponse, error) {
	contact, err := s.repo.GetContactByID(ctx, id)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return toContactResponse(contact), nil
}

// ListContacts retrieves all contacts.
func (s *Service) ListContacts(ctx context.Context) (transport.ContactListResponse, error) {
	items, err := s.repo.ListContacts(ctx)
	if err != nil {
		return transport.ContactListResponse{}, err
	}

	responses := make([]transport.ContactResponse, len(items))
	for i, item := range items {
		responses[i] = toContactResponse(item)
	}
	return transport.ContactListResponse{Items: responses, Total: len(responses)}, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (transport.TaskResponse, error) {
	task, err := s.repo.GetTaskByID(ctx, id)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return toTaskResponse(task), nil
}

// ListTasks retrieves all tasks.
func (s *Service) ListTasks(ctx context.Context) (transport.TaskListResponse, error) {
	items, err := s.repo.ListTasks(ctx)
	if err != nil {
		return transport.TaskListResponse{}, err
	}

	responses := make([]transport.TaskResponse, len(items))
	for i, item := range items {
		responses[i] = toTaskResponse(item)
	}
	return transport.TaskListResponse{Items: responses, Total: len(responses)}, nil
}

// GetDeal retrieves a deal by ID.
func (s *Service) GetDeal(ctx context.Context, id uuid.UUID) (transport.DealResponse, error) {
	deal, err := s.repo.GetDealByID(ctx, id)
	if err != nil {
		return transport.DealResponse{}, err
	}
	return toDealResponse(deal), nil
}

// ListDeals retrieves all deals.
func (s *Service) ListDeals(ctx context.Context) (transport.DealListResponse, error) {
	items, err := s.repo.ListDeals(ctx)
	if err != nil {
		return transport.DealListResponse{}, err
	}

	responses := make([]transport.DealResponse, len(items))
	for i, item := range items {
		responses[i] = toDealResponse(item)
	}
	return transport.DealListResponse{Items: responses, Total: len(responses)}, nil
}

func toContactResponse(contact repository.Contact) transport.ContactResponse {
	return transport.ContactResponse{
		ID:        contact.ID,
		Email:     contact.Email,
		Name:      contact.Name,
		Phone:     contact.Phone,
		Company:   contact.Company,
		Title:     contact.Title,
		CreatedAt: contact.CreatedAt,
		UpdatedAt: contact.UpdatedAt,
	}
}

func toTaskResponse(task repository.Task) transport.TaskResponse {
	return transport.TaskResponse{
		ID:        task.ID,
		Title:     task.Title,
		Details:   task.Details,
		Status:    task.Status,
		DueAt:     task.DueAt,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

func toDealResponse(deal repository.Deal) transport.DealResponse {
	return transport.DealResponse{
		ID:        deal.ID,
		Name:      deal.Name,
		Stage:     deal.Stage,
		Amount:    deal.Amount,
		CreatedAt: deal.CreatedAt,
		UpdatedAt: deal.UpdatedAt,
	}
}
