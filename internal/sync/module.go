// Package sync runs the reconciliation cycle: pull communications from
// sources, extract proposed CRM changes from the pending backlog, stage them
// as activities, and optionally auto-approve the result.
package sync

import (
	apphttp "crmsync_backend/internal/http"
)

// Module is the sync bounded context module implementing http.Module.
type Module struct {
	coordinator *Coordinator
	handler     *Handler
}

// NewModule creates the sync module around an already-wired coordinator.
func NewModule(coordinator *Coordinator) *Module {
	return &Module{
		coordinator: coordinator,
		handler:     NewHandler(coordinator),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sync"
}

// Coordinator returns the cycle runner for external triggers (scheduler).
func (m *Module) Coordinator() *Coordinator {
	return m.coordinator
}

// RegisterRoutes mounts sync routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/sync")
	group.POST("/run", m.handler.Run)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
