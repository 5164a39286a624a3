package transport

import (
	"time"

	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

type SaveConversationRequest struct {
	Transcript transcript.Transcript `json:"transcript" validate:"required,max=500,dive"`
	Summary    string                `json:"summary" validate:"omitempty,max=4000"`
}

type SaveConversationResponse struct {
	Success bool `json:"success"`
}

type ConversationResponse struct {
	LeadID     uuid.UUID             `json:"leadId"`
	Transcript transcript.Transcript `json:"transcript"`
	Summary    *string               `json:"summary,omitempty"`
	UpdatedAt  *time.Time            `json:"updatedAt,omitempty"`
}
