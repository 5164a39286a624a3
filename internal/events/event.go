// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"funnel_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCaptured is published when the resolver inserts a new lead.
type LeadCaptured struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	TaskID uuid.UUID `json:"taskId"`
}

func (e LeadCaptured) EventName() string { return "leads.lead.captured" }

// LeadNotified is published after the owner notification for a lead was sent.
type LeadNotified struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	TaskID       uuid.UUID `json:"taskId"`
	Variant      string    `json:"variant"`
	VisitorTurns int       `json:"visitorTurns"`
}

func (e LeadNotified) EventName() string { return "notification.lead.notified" }
