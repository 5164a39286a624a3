package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"funnel_backend/internal/notification/ports"
	"funnel_backend/internal/notification/service"
	"funnel_backend/internal/notification/sse"
	"funnel_backend/internal/notification/transport"
	"funnel_backend/internal/transcript"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	lead     ports.Lead
	notified bool
}

func (s *stubLedger) GetLead(_ context.Context, id uuid.UUID) (ports.Lead, error) {
	if id != s.lead.ID {
		return ports.Lead{}, ports.ErrNotFound
	}
	l := s.lead
	l.Notified = s.notified
	return l, nil
}
func (s *stubLedger) SetRating(context.Context, uuid.UUID, int) error { return nil }
func (s *stubLedger) ClaimNotification(context.Context, uuid.UUID, time.Time) (bool, error) {
	return !s.notified, nil
}
func (s *stubLedger) ReleaseNotificationClaim(context.Context, uuid.UUID) error { return nil }
func (s *stubLedger) MarkNotified(context.Context, uuid.UUID) error {
	s.notified = true
	return nil
}

type stubTargets struct{}

func (stubTargets) GetNotificationTarget(_ context.Context, taskID uuid.UUID) (ports.Target, error) {
	return ports.Target{TaskID: taskID, Title: "Kitchens", NotifyEmail: "sales@example.com"}, nil
}

type stubConversations struct{}

func (stubConversations) GetTranscript(context.Context, uuid.UUID) (transcript.Transcript, error) {
	return transcript.Transcript{{Speaker: transcript.SpeakerVisitor, Text: "hi"}}, nil
}
func (stubConversations) SetSummary(context.Context, uuid.UUID, string) error { return nil }

type countingSender struct{ n int }

func (c *countingSender) Send(context.Context, string, string, string) error {
	c.n++
	return nil
}

func newRouter(t *testing.T) (*gin.Engine, *stubLedger, *countingSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := &stubLedger{lead: ports.Lead{ID: uuid.New(), TaskID: uuid.New(), Phone: "+972501234567"}}
	sender := &countingSender{}
	svc := service.New(ledger, stubTargets{}, stubConversations{}, nil, sender, nil, logger.Discard(), nil, service.Config{})
	h := New(svc, sse.New(logger.Discard()), validator.New())

	r := gin.New()
	h.RegisterPublicRoutes(r.Group("/api/v1/public"))
	return r, ledger, sender
}

func TestAbandonAcceptsBeaconBody(t *testing.T) {
	r, ledger, sender := newRouter(t)

	body := `{"leadId":"` + ledger.lead.ID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/notifications/abandon", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp transport.DispatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.AlreadyNotified)
	assert.Equal(t, 1, sender.n)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/public/notifications/abandon", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.AlreadyNotified)
	assert.Equal(t, 1, sender.n)
}

func TestAbandonRejectsBadInput(t *testing.T) {
	r, _, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/public/notifications/abandon", strings.NewReader(`{"leadId":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/public/notifications/abandon", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/public/notifications/abandon", strings.NewReader(`{"leadId":"`+uuid.NewString()+`"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteRejectsRatingOutOfRange(t *testing.T) {
	r, ledger, sender := newRouter(t)

	body := `{"taskId":"` + ledger.lead.TaskID.String() + `","leadId":"` + ledger.lead.ID.String() + `","rating":9}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/public/notifications/complete", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, sender.n)
}
