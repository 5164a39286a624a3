package transport

// AbandonRequest is sent by the arbiter for the inactivity, hidden and
// unload triggers. Beacons deliver it as text/plain.
type AbandonRequest struct {
	LeadID string `json:"leadId" validate:"required,uuid"`
}

// CompleteRequest is sent when the visitor rates the conversation and
// finishes.
type CompleteRequest struct {
	TaskID string `json:"taskId" validate:"required,uuid"`
	LeadID string `json:"leadId" validate:"required,uuid"`
	Rating *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

type DispatchResponse struct {
	Success         bool   `json:"success"`
	AlreadyNotified bool   `json:"alreadyNotified"`
	InProgress      bool   `json:"inProgress,omitempty"`
	Variant         string `json:"variant,omitempty"`
}
