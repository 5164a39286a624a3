package adapters

import (
	"context"

	"funnel_backend/internal/capture"
	"funnel_backend/internal/leads/service"
	"funnel_backend/platform/apperr"

	"github.com/google/uuid"
)

// CaptureLeadResolver adapts the lead resolver for the capture session.
type CaptureLeadResolver struct {
	leads *service.Service
}

func NewCaptureLeadResolver(leads *service.Service) *CaptureLeadResolver {
	return &CaptureLeadResolver{leads: leads}
}

func (a *CaptureLeadResolver) Resolve(ctx context.Context, taskID uuid.UUID, id capture.Identity) (uuid.UUID, error) {
	res, err := a.leads.Resolve(ctx, service.ResolveParams{
		TaskID: taskID,
		Name:   id.Name,
		Phone:  id.Phone,
		Email:  id.Email,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return res.Lead.ID, nil
}

// FindByIdentity returns uuid.Nil without error when nothing matches.
func (a *CaptureLeadResolver) FindByIdentity(ctx context.Context, taskID uuid.UUID, id capture.Identity) (uuid.UUID, error) {
	lead, err := a.leads.FindByIdentity(ctx, taskID, id.Phone, id.Email)
	if apperr.Is(err, apperr.KindNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return lead.ID, nil
}

var _ capture.LeadResolver = (*CaptureLeadResolver)(nil)
