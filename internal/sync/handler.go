package sync

import (
	"github.com/gin-gonic/gin"

	"crmsync_backend/platform/httpkit"
)

// Handler exposes the sync cycle over HTTP.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler creates a sync handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// Run triggers one sync cycle and returns its counts.
func (h *Handler) Run(c *gin.Context) {
	result, err := h.coordinator.RunCycle(c.Request.Context(), TriggerManual)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
