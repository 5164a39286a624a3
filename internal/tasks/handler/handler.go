package handler

import (
	"net/http"

	"funnel_backend/internal/tasks/service"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves task routes for visitors and owners.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts routes under /api/v1/public.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks/:taskId", h.GetPublic)
}

// RegisterOwnerRoutes mounts routes under the authenticated group.
func (h *Handler) RegisterOwnerRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks/:taskId/qr", h.GetQRCode)
}

func (h *Handler) GetPublic(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid task id"))
		return
	}

	resp, err := h.svc.GetPublic(c.Request.Context(), taskID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) GetQRCode(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid task id"))
		return
	}

	png, err := h.svc.QRCode(c.Request.Context(), taskID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
