// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	nethttp "net/http"

	"funnel_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	// The RouterContext provides access to shared middleware and configuration.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
// This avoids passing many parameters to each module's RegisterRoutes method.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Public is the unauthenticated, IP rate limited group under /api/v1/public.
	Public *gin.RouterGroup
	// Protected is the owner-authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// Mux sits in front of Engine. Routes on it get the connection's own
	// ResponseWriter, which websocket upgrades need, and skip gin middleware.
	// Patterns use full paths, e.g. "GET /api/v1/public/...".
	Mux *nethttp.ServeMux
	// PublicLimit applies the Public group's rate limit to a Mux handler.
	PublicLimit func(nethttp.Handler) nethttp.Handler
	// Config is the JWT configuration for auth middleware (scoped access).
	Config config.JWTConfig
	// AuthMiddleware provides the authentication middleware.
	AuthMiddleware gin.HandlerFunc
}
