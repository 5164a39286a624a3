package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"funnel_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutClients(t *testing.T) {
	s := New(logger.Discard())
	assert.Equal(t, 0, s.Publish(uuid.New(), Event{Type: EventLeadCaptured}))
}

func TestStreamDeliversOwnerEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := New(logger.Discard())
	owner := uuid.New()

	r := gin.New()
	r.GET("/stream", s.Handler(func(*gin.Context) (uuid.UUID, bool) { return owner, true }))
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			}
		}
	}
	assert.Equal(t, "connected", readEvent())

	leadID := uuid.New()
	require.Eventually(t, func() bool {
		return s.Publish(owner, Event{Type: EventLeadNotified, LeadID: leadID}) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, string(EventLeadNotified), readEvent())
}

func TestStreamRequiresOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := New(logger.Discard())

	r := gin.New()
	r.GET("/stream", s.Handler(func(*gin.Context) (uuid.UUID, bool) { return uuid.Nil, false }))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
