package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crmsync_backend/internal/crm/service"
	"crmsync_backend/platform/httpkit"
)

const msgInvalidID = "invalid ID"

// Handler handles HTTP requests for canonical entities.
type Handler struct {
	svc *service.Service
}

// New creates a new canonical store handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// ListContacts retrieves all contacts.
// GET /api/v1/contacts
func (h *Handler) ListContacts(c *gin.Context) {
	result, err := h.svc.ListContacts(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetContact retrieves a contact by ID.
// GET /api/v1/contacts/:id
func (h *Handler) GetContact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetContact(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListTasks retrieves all tasks.
// GET /api/v1/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	result, err := h.svc.ListTasks(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetTask retrieves a task by ID.
// GET /api/v1/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetTask(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListDeals retrieves all deals.
// GET /api/v1/deals
func (h *Handler) ListDeals(c *gin.Context) {
	result, err := h.svc.ListDeals(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetDeal retrieves a deal by ID.
// GET /api/v1/deals/:id
func (h *Handler) GetDeal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetDeal(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
