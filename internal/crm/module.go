// Package crm provides the canonical entity store bounded context module.
// Contacts, tasks and deals are the system of record; only the materializer
// writes to them, everything else reads.
package crm

import (
	apphttp "crmsync_backend/internal/http"
	"crmsync_backend/internal/crm/handler"
	"crmsync_backend/internal/crm/repository"
	"crmsync_backend/internal/crm/service"
	"crmsync_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the canonical store bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the crm module with all its dependencies.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "crm"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts canonical entity routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/contacts", m.handler.ListContacts)
	ctx.Protected.GET("/contacts/:id", m.handler.GetContact)
	ctx.Protected.GET("/tasks", m.handler.ListTasks)
	ctx.Protected.GET("/tasks/:id", m.handler.GetTask)
	ctx.Protected.GET("/deals", m.handler.ListDeals)
	ctx.Protected.GET("/deals/:id", m.handler.GetDeal)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
