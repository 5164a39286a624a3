package handler

import (
	"funnel_backend/internal/leads/service"
	"funnel_backend/internal/leads/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PublicHandler handles the funnel's unauthenticated lead endpoints.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	publicMsgInvalidInput   = "Invalid input"
	publicMsgInvalidRequest = "Invalid request"
	publicMsgInvalidTaskID  = "Invalid task id"
)

func NewPublicHandler(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// RegisterRoutes registers routes under /api/v1/public.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tasks/:taskId/leads", h.CreateOrMerge)
	rg.POST("/tasks/:taskId/leads/lookup", h.Lookup)
}

// CreateOrMerge resolves an identity submission into the task's lead.
func (h *PublicHandler) CreateOrMerge(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(publicMsgInvalidTaskID))
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(publicMsgInvalidRequest).WithDetails(err.Error()))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(publicMsgInvalidInput).WithDetails(validator.FieldErrors(err)))
		return
	}

	result, err := h.svc.Resolve(c.Request.Context(), service.ResolveParams{
		TaskID: taskID,
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ResolveLeadResponse{
		Lead:       toLeadResponse(result.Lead),
		WasUpdated: result.WasUpdated,
	})
}

// Lookup finds an existing lead by phone or email without writing.
func (h *PublicHandler) Lookup(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(publicMsgInvalidTaskID))
		return
	}

	var req transport.LookupLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(publicMsgInvalidRequest).WithDetails(err.Error()))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(publicMsgInvalidInput).WithDetails(validator.FieldErrors(err)))
		return
	}

	lead, err := h.svc.FindByIdentity(c.Request.Context(), taskID, req.Phone, req.Email)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.LookupLeadResponse{Lead: toLeadResponse(lead)})
}
