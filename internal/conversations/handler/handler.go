package handler

import (
	"funnel_backend/internal/conversations/repository"
	"funnel_backend/internal/conversations/service"
	"funnel_backend/internal/conversations/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPublicRoutes mounts the transcript save under /api/v1/public.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.PUT("/leads/:leadId/conversation", h.Save)
}

// RegisterOwnerRoutes mounts the owner's transcript view.
func (h *Handler) RegisterOwnerRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads/:leadId/conversation", h.Get)
}

func (h *Handler) Save(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	var req transport.SaveConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("Invalid request").WithDetails(err.Error()))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation("Invalid input").WithDetails(validator.FieldErrors(err)))
		return
	}

	if httpkit.HandleError(c, h.svc.Save(c.Request.Context(), leadID, req.Transcript, req.Summary)) {
		return
	}
	httpkit.OK(c, transport.SaveConversationResponse{Success: true})
}

func (h *Handler) Get(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	conv, err := h.svc.GetForOwner(c.Request.Context(), leadID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(conv))
}

func toResponse(conv repository.Conversation) transport.ConversationResponse {
	resp := transport.ConversationResponse{
		LeadID:     conv.LeadID,
		Transcript: conv.Transcript,
		Summary:    conv.Summary,
	}
	if !conv.UpdatedAt.IsZero() {
		updated := conv.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}
