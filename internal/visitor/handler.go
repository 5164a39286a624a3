package visitor

import (
	"funnel_backend/internal/capture"
	"funnel_backend/internal/transcript"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatRequest is a stateless chat turn for clients that keep the transcript
// themselves.
type ChatRequest struct {
	Transcript transcript.Transcript `json:"transcript" validate:"max=200,dive"`
	Message    string                `json:"message" validate:"required,max=4000"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

// Handler serves the chat proxy.
type Handler struct {
	tasks     TaskLoader
	responder capture.ChatResponder
	val       *validator.Validator
}

func NewHandler(tasks TaskLoader, responder capture.ChatResponder, val *validator.Validator) *Handler {
	return &Handler{tasks: tasks, responder: responder, val: val}
}

func (h *Handler) Chat(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid task id"))
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("Invalid request"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation("Invalid input").WithDetails(validator.FieldErrors(err)))
		return
	}

	task, err := h.tasks.LoadSessionTask(c.Request.Context(), taskID)
	if httpkit.HandleError(c, err) {
		return
	}

	reply, err := h.responder.Reply(c.Request.Context(), task.Script, req.Transcript, req.Message)
	if err != nil {
		httpkit.HandleError(c, apperr.Upstream("chat responder unavailable", err))
		return
	}
	httpkit.OK(c, ChatResponse{Reply: reply})
}
