package visitor

import (
	"funnel_backend/internal/capture"
	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

// Inbound frame types sent by the tab.
const (
	frameMessage    = "message"
	frameActivity   = "activity"
	frameVisibility = "visibility"
	frameComplete   = "complete"
	frameIdentity   = "identity"
	framePing       = "ping"
)

// Outbound frame types sent to the tab.
const (
	frameTranscript = "transcript"
	frameStage      = "stage"
	frameNotice     = "notice"
	frameLead       = "lead"
	frameCompleted  = "completed"
	frameError      = "error"
	framePong       = "pong"
)

type inboundFrame struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Hidden   bool              `json:"hidden,omitempty"`
	Rating   *int              `json:"rating,omitempty"`
	Identity *capture.Identity `json:"identity,omitempty"`
}

type outboundFrame struct {
	Type       string                `json:"type"`
	Transcript transcript.Transcript `json:"transcript,omitempty"`
	Stage      capture.Stage         `json:"stage,omitempty"`
	Text       string                `json:"text,omitempty"`
	LeadID     *uuid.UUID            `json:"leadId,omitempty"`
	Dispatched *bool                 `json:"dispatched,omitempty"`
	Error      string                `json:"error,omitempty"`
}
