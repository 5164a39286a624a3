// Package visitor is the public face of the funnel: the websocket each tab
// holds open while it chats, and a stateless chat proxy.
package visitor

import (
	"funnel_backend/internal/capture"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"
	"funnel_backend/platform/validator"
)

// Deps wires the visitor module. Queue, Cache and Metrics may be nil.
type Deps struct {
	Tasks     TaskLoader
	Responder capture.ChatResponder
	Resolver  capture.LeadResolver
	Saver     capture.ConversationSaver
	Cache     capture.IdentityCache
	Notifier  Notifier
	Queue     BeaconQueue
	Validator *validator.Validator
	Log       *logger.Logger
	Metrics   *metrics.Recorder
}

// SessionPath is the websocket route. It lives on the plain mux, under the
// public prefix and its rate limit.
const SessionPath = "/api/v1/public/tasks/{taskId}/session"

type Module struct {
	gateway *Gateway
	handler *Handler
}

func NewModule(deps Deps, cfg GatewayConfig) *Module {
	session := capture.Deps{
		Responder: deps.Responder,
		Resolver:  deps.Resolver,
		Saver:     deps.Saver,
		Cache:     deps.Cache,
	}
	return &Module{
		gateway: NewGateway(cfg, deps.Tasks, session, deps.Notifier, deps.Queue, deps.Validator, deps.Log, deps.Metrics),
		handler: NewHandler(deps.Tasks, deps.Responder, deps.Validator),
	}
}

func (m *Module) Name() string {
	return "visitor"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Mux.Handle("GET "+SessionPath, ctx.PublicLimit(m.gateway))
	ctx.Public.POST("/tasks/:taskId/chat", m.handler.Chat)
}

var _ apphttp.Module = (*Module)(nil)
