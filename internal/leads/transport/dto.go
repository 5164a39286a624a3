package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest is an identity submission from the funnel.
type CreateLeadRequest struct {
	Name  string `json:"name" validate:"omitempty,max=200"`
	Phone string `json:"phone" validate:"required,funnel_phone"`
	Email string `json:"email" validate:"omitempty,max=320,funnel_email"`
}

// LookupLeadRequest finds an existing lead by phone or email.
type LookupLeadRequest struct {
	Phone string `json:"phone" validate:"required_without=Email,omitempty,funnel_phone"`
	Email string `json:"email" validate:"required_without=Phone,omitempty,funnel_email"`
}

type LeadResponse struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"taskId"`
	Name      *string   `json:"name,omitempty"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
	Rating    *int      `json:"rating,omitempty"`
	Notified  bool      `json:"notified"`
	CreatedAt time.Time `json:"createdAt"`
}

type ResolveLeadResponse struct {
	Lead       LeadResponse `json:"lead"`
	WasUpdated bool         `json:"wasUpdated"`
}

type LookupLeadResponse struct {
	Lead LeadResponse `json:"lead"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}
