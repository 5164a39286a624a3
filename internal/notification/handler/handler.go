package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"funnel_backend/internal/notification/service"
	"funnel_backend/internal/notification/sse"
	"funnel_backend/internal/notification/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "Invalid request"
	msgInvalidInput   = "Invalid input"

	maxBeaconBody = 4 << 10
)

type Handler struct {
	svc *service.Service
	sse *sse.Service
	val *validator.Validator
}

func New(svc *service.Service, stream *sse.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, sse: stream, val: val}
}

// RegisterPublicRoutes mounts the arbiter delivery endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/notifications/abandon", h.Abandon)
	rg.POST("/notifications/complete", h.Complete)
}

// RegisterOwnerRoutes mounts the owner's live lead feed.
func (h *Handler) RegisterOwnerRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications/stream", h.sse.Handler(func(c *gin.Context) (uuid.UUID, bool) {
		identity := httpkit.GetIdentity(c)
		if identity == nil {
			return uuid.Nil, false
		}
		return identity.UserID(), true
	}))
}

// Abandon dispatches the notification for a lead whose tab went idle, hidden
// or closed. The body is JSON regardless of the declared content type since
// navigator.sendBeacon posts text/plain.
func (h *Handler) Abandon(c *gin.Context) {
	var req transport.AbandonRequest
	if !h.decode(c, &req) {
		return
	}
	leadID, _ := uuid.Parse(req.LeadID)

	res, err := h.svc.Dispatch(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(res))
}

// Complete stores the visitor's rating and dispatches.
func (h *Handler) Complete(c *gin.Context) {
	var req transport.CompleteRequest
	if !h.decode(c, &req) {
		return
	}
	taskID, _ := uuid.Parse(req.TaskID)
	leadID, _ := uuid.Parse(req.LeadID)

	res, err := h.svc.Complete(c.Request.Context(), taskID, leadID, req.Rating)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(res))
}

func (h *Handler) decode(c *gin.Context, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBeaconBody))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest).WithDetails(err.Error()))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest).WithDetails(err.Error()))
		return false
	}
	if err := h.val.Struct(dst); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgInvalidInput).WithDetails(validator.FieldErrors(err)))
		return false
	}
	return true
}

func toResponse(res service.Result) transport.DispatchResponse {
	return transport.DispatchResponse{
		Success:         true,
		AlreadyNotified: res.AlreadyNotified,
		InProgress:      res.InProgress,
		Variant:         res.Variant,
	}
}
