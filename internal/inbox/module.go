// Package inbox provides the source event bounded context module.
// It persists normalized inbound communications with a processing status and
// guarantees idempotent ingestion keyed by external id.
package inbox

import (
	"crmsync_backend/internal/events"
	apphttp "crmsync_backend/internal/http"
	"crmsync_backend/internal/inbox/handler"
	"crmsync_backend/internal/inbox/repository"
	"crmsync_backend/internal/inbox/service"
	"crmsync_backend/platform/logger"
	"crmsync_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the inbox bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the inbox module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "inbox"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// Watermarks returns the per-source sync watermark store.
func (m *Module) Watermarks() repository.WatermarkStore {
	return m.repo
}

// RegisterRoutes mounts inbox routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/inbox/events")
	group.POST("", m.handler.Ingest)
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.POST("/:id/retry", m.handler.Retry)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
