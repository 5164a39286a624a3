// Package tasks provides the read-only task bounded context: the public task
// view a visitor opens and the owner's funnel QR code.
package tasks

import (
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/tasks/handler"
	"funnel_backend/internal/tasks/repository"
	"funnel_backend/internal/tasks/service"
	"funnel_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tasks bounded context module implementing http.Module.
type Module struct {
	repo    *repository.Repository
	service *service.Service
	handler *handler.Handler
}

// NewModule creates the tasks module.
func NewModule(pool *pgxpool.Pool, cfg config.FunnelConfig) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg.GetAppBaseURL())
	return &Module{
		repo:    repo,
		service: svc,
		handler: handler.New(svc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tasks"
}

// Service returns the task service for other modules' adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the task repository for other modules' adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts task routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public)
	m.handler.RegisterOwnerRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
