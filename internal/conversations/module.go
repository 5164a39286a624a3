// Package conversations provides the conversation store bounded context.
package conversations

import (
	"funnel_backend/internal/conversations/handler"
	"funnel_backend/internal/conversations/repository"
	"funnel_backend/internal/conversations/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conversations bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, owners service.LeadOwnership, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool), owners)
	return &Module{
		service: svc,
		handler: handler.New(svc, val),
	}
}

func (m *Module) Name() string {
	return "conversations"
}

// Service returns the conversation service for other modules' adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public)
	m.handler.RegisterOwnerRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
