// Package leads provides the lead bounded context module: the resolver that
// merges identity submissions and the owner's lead list.
package leads

import (
	"context"
	"log/slog"

	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/leads/handler"
	"funnel_backend/internal/leads/ports"
	"funnel_backend/internal/leads/repository"
	"funnel_backend/internal/leads/service"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo          *repository.Repository
	service       *service.Service
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, tasks ports.TaskDirectory, eventBus events.Bus, val *validator.Validator, log *logger.Logger, rec *metrics.Recorder) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tasks, eventBus, log, rec)

	return &Module{
		repo:          repo,
		service:       svc,
		handler:       handler.New(svc),
		publicHandler: handler.NewPublicHandler(svc, val),
	}
}

// SubscribeAbandonmentChecks schedules the server-side safety net for every
// newly captured lead.
func (m *Module) SubscribeAbandonmentChecks(eventBus events.Bus, scheduler ports.AbandonmentScheduler, log *logger.Logger) {
	eventBus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCaptured)
		if !ok {
			return nil
		}
		if err := scheduler.ScheduleAbandonmentCheck(ctx, e.LeadID); err != nil {
			log.Warn("abandonment check not scheduled",
				slog.String("lead_id", e.LeadID.String()),
				slog.String("error", err.Error()),
			)
			return err
		}
		return nil
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead resolver for other modules' adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the notification ledger adapter.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.publicHandler.RegisterRoutes(ctx.Public)
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
