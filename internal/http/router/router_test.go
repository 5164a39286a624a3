package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type routerCfg struct{}

func (routerCfg) GetHTTPAddr() string { return ":0" }
func (routerCfg) GetCORSAllowAll() bool { return true }
func (routerCfg) GetCORSOrigins() []string { return nil }
func (routerCfg) GetCORSAllowCreds() bool { return false }
func (routerCfg) GetPublicRateLimit() float64 { return 100 }
func (routerCfg) GetPublicRateBurst() int { return 100 }
func (routerCfg) GetJWTAccessSecret() string { return "test-secret" }

// rawModule mounts one handler on the mux and one on gin.
type rawModule struct{}

func (rawModule) Name() string { return "raw" }

func (rawModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Mux.Handle("GET /api/v1/public/things/{id}/socket", ctx.PublicLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-By", "mux")
		_, _ = w.Write([]byte(r.PathValue("id")))
	})))
	ctx.Public.GET("/things/:id", func(c *gin.Context) {
		c.Header("X-Served-By", "gin")
		c.String(http.StatusOK, c.Param("id"))
	})
}

func newTestHandler() http.Handler {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  routerCfg{},
		Logger:  logger.Discard(),
		Metrics: metrics.New(),
		Modules: []apphttp.Module{rawModule{}},
	})
}

func TestMuxRoutesBypassGin(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/public/things/42/socket", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mux", w.Header().Get("X-Served-By"))
	assert.Equal(t, "42", w.Body.String())
	assert.Empty(t, w.Header().Get("X-Request-ID"), "gin middleware does not run for mux routes")
}

func TestEverythingElseReachesGin(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/public/things/42", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gin", w.Header().Get("X-Served-By"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/public/things/42/socket", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "other methods fall through to gin")
}
