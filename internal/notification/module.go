// Package notification owns the owner notification: the composer that sends
// at most one email per lead, the arbiter delivery endpoints and the owner's
// live lead feed.
package notification

import (
	"context"
	"log/slog"

	"funnel_backend/internal/email"
	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/notification/handler"
	"funnel_backend/internal/notification/ports"
	"funnel_backend/internal/notification/service"
	"funnel_backend/internal/notification/sse"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"
	"funnel_backend/platform/validator"

	"github.com/google/uuid"
)

// Deps are the collaborators the module needs from other contexts.
type Deps struct {
	Leads         ports.LeadLedger
	Tasks         ports.TaskTargets
	Conversations ports.Conversations
	Analyzer      ports.Analyzer
	Archiver      ports.Archiver
	Sender        email.Sender
	Bus           events.Bus
	Validator     *validator.Validator
	Log           *logger.Logger
	Metrics       *metrics.Recorder
}

type Module struct {
	service *service.Service
	stream  *sse.Service
	handler *handler.Handler
	deps    Deps
}

func NewModule(deps Deps, cfg service.Config) *Module {
	svc := service.New(deps.Leads, deps.Tasks, deps.Conversations, deps.Analyzer, deps.Sender, deps.Bus, deps.Log, deps.Metrics, cfg)
	stream := sse.New(deps.Log)
	m := &Module{
		service: svc,
		stream:  stream,
		handler: handler.New(svc, stream, deps.Validator),
		deps:    deps,
	}
	m.subscribe()
	return m
}

func (m *Module) subscribe() {
	if m.deps.Bus == nil {
		return
	}

	m.deps.Bus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCaptured)
		if !ok {
			return nil
		}
		return m.pushToOwner(ctx, e.TaskID, sse.Event{Type: sse.EventLeadCaptured, LeadID: e.LeadID, TaskID: e.TaskID})
	}))

	m.deps.Bus.Subscribe(events.LeadNotified{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadNotified)
		if !ok {
			return nil
		}
		if err := m.pushToOwner(ctx, e.TaskID, sse.Event{
			Type:   sse.EventLeadNotified,
			LeadID: e.LeadID,
			TaskID: e.TaskID,
			Data:   map[string]any{"variant": e.Variant, "visitorTurns": e.VisitorTurns},
		}); err != nil {
			return err
		}
		return m.archive(ctx, e)
	}))
}

func (m *Module) pushToOwner(ctx context.Context, taskID uuid.UUID, event sse.Event) error {
	target, err := m.deps.Tasks.GetNotificationTarget(ctx, taskID)
	if err != nil {
		return err
	}
	m.stream.Publish(target.OwnerID, event)
	return nil
}

// archive copies the notified transcript to object storage. Best effort.
func (m *Module) archive(ctx context.Context, e events.LeadNotified) error {
	if m.deps.Archiver == nil {
		return nil
	}
	tr, err := m.deps.Conversations.GetTranscript(ctx, e.LeadID)
	if err != nil {
		m.deps.Metrics.ArchiveFailed()
		return err
	}
	if err := m.deps.Archiver.ArchiveTranscript(ctx, e.TaskID, e.LeadID, tr); err != nil {
		m.deps.Metrics.ArchiveFailed()
		m.deps.Log.Warn("transcript archive failed",
			slog.String("lead_id", e.LeadID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

func (m *Module) Name() string {
	return "notification"
}

// Service exposes the composer for the scheduler worker and the visitor
// gateway's request delivery.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public)
	m.handler.RegisterOwnerRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
