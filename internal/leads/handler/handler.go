package handler

import (
	"funnel_backend/internal/leads/service"
	"funnel_backend/internal/leads/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the owner's lead views.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks/:taskId/leads", h.ListByTask)
}

func (h *Handler) ListByTask(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid task id"))
		return
	}

	leads, err := h.svc.ListForOwner(c.Request.Context(), taskID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		items = append(items, toLeadResponse(l))
	}
	httpkit.OK(c, transport.LeadListResponse{Items: items, Total: len(items)})
}
