// Package activities provides the staged proposal bounded context module:
// the activity staging store, the decision engine and the materializer.
package activities

import (
	"crmsync_backend/internal/activities/handler"
	"crmsync_backend/internal/activities/repository"
	"crmsync_backend/internal/activities/service"
	"crmsync_backend/internal/events"
	apphttp "crmsync_backend/internal/http"
	"crmsync_backend/platform/logger"
	"crmsync_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the activities bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the activities module. The canonical
// store is injected so materialization writes go through the crm repository.
func NewModule(pool *pgxpool.Pool, store service.CanonicalStore, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	materializer := service.NewWriter(store, log)
	svc := service.New(repo, materializer, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "activities"
}

// Service returns the decision engine for external use (sync coordinator).
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the staging repository for direct access (orchestrator).
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts activity routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/activities")
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.POST("/:id/accept", m.handler.Accept)
	group.POST("/:id/reject", m.handler.Reject)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
