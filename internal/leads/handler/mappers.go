package handler

import (
	"funnel_backend/internal/leads/repository"
	"funnel_backend/internal/leads/transport"
)

func toLeadResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:        l.ID,
		TaskID:    l.TaskID,
		Name:      l.Name,
		Phone:     l.Phone,
		Email:     l.Email,
		Rating:    l.Rating,
		Notified:  l.Notified,
		CreatedAt: l.CreatedAt,
	}
}
