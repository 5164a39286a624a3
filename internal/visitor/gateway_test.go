package visitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"funnel_backend/internal/capture"
	"funnel_backend/internal/transcript"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTasks struct {
	task SessionTask
}

func (s stubTasks) LoadSessionTask(_ context.Context, id uuid.UUID) (SessionTask, error) {
	if id != s.task.ID {
		return SessionTask{}, apperr.NotFound("task not found")
	}
	return s.task, nil
}

type echoResponder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (r *echoResponder) Reply(_ context.Context, _ string, _ transcript.Transcript, message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", errors.New("model unavailable")
	}
	r.calls++
	return fmt.Sprintf("re: %s", message), nil
}

type fixedResolver struct{ leadID uuid.UUID }

func (f fixedResolver) Resolve(context.Context, uuid.UUID, capture.Identity) (uuid.UUID, error) {
	return f.leadID, nil
}

func (f fixedResolver) FindByIdentity(context.Context, uuid.UUID, capture.Identity) (uuid.UUID, error) {
	return f.leadID, nil
}

type nopSaver struct{}

func (nopSaver) Save(context.Context, uuid.UUID, transcript.Transcript) error { return nil }

// slowSaver stores transcripts with a store-like latency.
type slowSaver struct {
	delay time.Duration

	mu     sync.Mutex
	stored transcript.Transcript
}

func (s *slowSaver) Save(ctx context.Context, _ uuid.UUID, tr transcript.Transcript) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
	}
	s.mu.Lock()
	s.stored = tr
	s.mu.Unlock()
	return nil
}

func (s *slowSaver) visitorTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored.VisitorTurns()
}

// storeReadingNotifier reports how many visitor turns were stored when the
// composer ran, the way the real composer reads the transcript.
type storeReadingNotifier struct {
	saver *slowSaver
	seen  chan int
}

func (n *storeReadingNotifier) Notify(context.Context, uuid.UUID) error {
	n.seen <- n.saver.visitorTurns()
	return nil
}

func (n *storeReadingNotifier) NotifyCompletion(context.Context, uuid.UUID, uuid.UUID, *int) error {
	n.seen <- n.saver.visitorTurns()
	return nil
}

// slowResolver fails like a database driver once its context is gone.
type slowResolver struct {
	leadID uuid.UUID
	delay  time.Duration
}

func (r slowResolver) wait(ctx context.Context) (uuid.UUID, error) {
	select {
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	case <-time.After(r.delay):
		return r.leadID, nil
	}
}

func (r slowResolver) Resolve(ctx context.Context, _ uuid.UUID, _ capture.Identity) (uuid.UUID, error) {
	return r.wait(ctx)
}

func (r slowResolver) FindByIdentity(ctx context.Context, _ uuid.UUID, _ capture.Identity) (uuid.UUID, error) {
	return r.wait(ctx)
}

type gatewayHarness struct {
	server   *httptest.Server
	task     SessionTask
	leadID   uuid.UUID
	notifier *recordingNotifier
	queue    *recordingQueue
	cache    *MemoryIdentityCache
}

// harnessDeps are the collaborators a test may swap before the gateway is built.
type harnessDeps struct {
	resolver capture.LeadResolver
	saver    capture.ConversationSaver
	notifier Notifier
	queue    BeaconQueue
}

type harnessOption func(*harnessDeps)

func withResolver(r capture.LeadResolver) harnessOption {
	return func(d *harnessDeps) { d.resolver = r }
}

func withSaver(s capture.ConversationSaver) harnessOption {
	return func(d *harnessDeps) { d.saver = s }
}

func withNotifier(n Notifier) harnessOption {
	return func(d *harnessDeps) { d.notifier = n }
}

// withoutQueue makes beacons dispatch inline, as they do without Redis.
func withoutQueue() harnessOption {
	return func(d *harnessDeps) { d.queue = nil }
}

func newGatewayHarness(t *testing.T, cfg GatewayConfig, opts ...harnessOption) *gatewayHarness {
	t.Helper()

	h := &gatewayHarness{
		task: SessionTask{
			ID:              uuid.New(),
			Script:          "Sell kitchens.",
			OpeningQuestion: "What are you planning?",
		},
		leadID:   uuid.New(),
		notifier: newRecordingNotifier(),
		queue:    &recordingQueue{},
		cache:    NewMemoryIdentityCache(),
	}
	deps := harnessDeps{
		resolver: fixedResolver{leadID: h.leadID},
		saver:    nopSaver{},
		notifier: h.notifier,
		queue:    h.queue,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	gw := NewGateway(cfg, stubTasks{task: h.task}, capture.Deps{
		Responder: &echoResponder{},
		Resolver:  deps.resolver,
		Saver:     deps.saver,
		Cache:     h.cache,
	}, deps.notifier, deps.queue, validator.New(), logger.Discard(), nil)

	mux := http.NewServeMux()
	mux.Handle("GET "+SessionPath, gw)
	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *gatewayHarness) sessionURL(scheme string, taskID string) string {
	return scheme + strings.TrimPrefix(h.server.URL, "http") + strings.Replace(SessionPath, "{taskId}", taskID, 1)
}

func (h *gatewayHarness) dial(t *testing.T, ctx context.Context, taskID uuid.UUID, profile string) *websocket.Conn {
	t.Helper()
	url := h.sessionURL("ws", taskID.String())
	if profile != "" {
		url += "?profile=" + profile
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

// readUntil returns the first frame of the wanted type.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, frameType string) outboundFrame {
	t.Helper()
	for {
		var f outboundFrame
		require.NoError(t, wsjson.Read(ctx, conn, &f))
		if f.Type == frameType {
			return f
		}
	}
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, f inboundFrame) {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, f))
}

func TestGatewayCapturesLeadAndBeaconsOnClose(t *testing.T) {
	h := newGatewayHarness(t, GatewayConfig{CaptureAfterTurns: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, h.task.ID, "")

	first := readUntil(t, ctx, conn, frameTranscript)
	require.Len(t, first.Transcript, 1)
	assert.Equal(t, "What are you planning?", first.Transcript[0].Text)

	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "A new kitchen"})
	out := readUntil(t, ctx, conn, frameTranscript)
	last, _ := out.Transcript.Last()
	assert.Equal(t, "re: A new kitchen", last.Text)
	assert.Equal(t, capture.StageFreeChat, readUntil(t, ctx, conn, frameStage).Stage)

	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "Something modern"})
	assert.Equal(t, capture.StageAskName, readUntil(t, ctx, conn, frameStage).Stage)

	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "Dana"})
	assert.Equal(t, capture.StageAskEmail, readUntil(t, ctx, conn, frameStage).Stage)
	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "dana@example.com"})
	assert.Equal(t, capture.StageAskPhone, readUntil(t, ctx, conn, frameStage).Stage)
	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "050-123-4567"})
	assert.Equal(t, capture.StageDone, readUntil(t, ctx, conn, frameStage).Stage)

	lead := readUntil(t, ctx, conn, frameLead)
	require.NotNil(t, lead.LeadID)
	assert.Equal(t, h.leadID, *lead.LeadID)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	require.Eventually(t, func() bool { return len(h.queue.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, queuedDispatch{leadID: h.leadID, trigger: "unload"}, h.queue.snapshot()[0])
}

func TestGatewayUnloadSeesLastSave(t *testing.T) {
	saver := &slowSaver{delay: 20 * time.Millisecond}
	notifier := &storeReadingNotifier{saver: saver, seen: make(chan int, 4)}
	h := newGatewayHarness(t, GatewayConfig{}, withSaver(saver), withNotifier(notifier), withoutQueue())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, h.cache.Put(ctx, "device-profile-3", capture.Identity{
		Name: "Dana", Email: "dana@example.com", Phone: "050-123-4567",
	}))
	conn := h.dial(t, ctx, h.task.ID, "device-profile-3")
	readUntil(t, ctx, conn, frameLead)

	for _, text := range []string{"A kitchen", "Oak fronts", "An island", "Next spring"} {
		send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: text})
		readUntil(t, ctx, conn, frameTranscript)
	}
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	select {
	case turns := <-notifier.seen:
		assert.Equal(t, 4, turns, "the unload dispatch must read the flushed transcript")
	case <-ctx.Done():
		t.Fatal("unload dispatch never ran")
	}
}

func TestGatewayPhoneSentBeforeCloseStillCreatesLead(t *testing.T) {
	leadID := uuid.New()
	h := newGatewayHarness(t, GatewayConfig{CaptureAfterTurns: 1},
		withResolver(slowResolver{leadID: leadID, delay: 50 * time.Millisecond}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, h.task.ID, "")
	readUntil(t, ctx, conn, frameStage)

	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "A new kitchen"})
	assert.Equal(t, capture.StageAskName, readUntil(t, ctx, conn, frameStage).Stage)
	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "Dana"})
	assert.Equal(t, capture.StageAskEmail, readUntil(t, ctx, conn, frameStage).Stage)
	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "dana@example.com"})
	assert.Equal(t, capture.StageAskPhone, readUntil(t, ctx, conn, frameStage).Stage)

	// The tab goes away while the lead is still being resolved.
	send(t, ctx, conn, inboundFrame{Type: frameMessage, Text: "050-123-4567"})
	require.NoError(t, conn.Close(websocket.StatusGoingAway, "tab closed"))

	require.Eventually(t, func() bool { return len(h.queue.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, queuedDispatch{leadID: leadID, trigger: "unload"}, h.queue.snapshot()[0])
}

func TestGatewayCompletionDispatchesOnce(t *testing.T) {
	h := newGatewayHarness(t, GatewayConfig{CaptureAfterTurns: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, h.cache.Put(ctx, "device-profile-1", capture.Identity{
		Name: "Dana", Email: "dana@example.com", Phone: "050-123-4567",
	}))
	conn := h.dial(t, ctx, h.task.ID, "device-profile-1")

	lead := readUntil(t, ctx, conn, frameLead)
	require.NotNil(t, lead.LeadID)

	rating := 5
	send(t, ctx, conn, inboundFrame{Type: frameComplete, Rating: &rating})
	done := readUntil(t, ctx, conn, frameCompleted)
	require.NotNil(t, done.Dispatched)
	assert.True(t, *done.Dispatched)

	send(t, ctx, conn, inboundFrame{Type: frameComplete})
	again := readUntil(t, ctx, conn, frameCompleted)
	require.NotNil(t, again.Dispatched)
	assert.False(t, *again.Dispatched)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	time.Sleep(50 * time.Millisecond)

	calls := h.notifier.snapshot()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].completion)
	assert.Equal(t, h.task.ID, calls[0].taskID)
	assert.Empty(t, h.queue.snapshot())
}

func TestGatewayHiddenTabBeacons(t *testing.T) {
	h := newGatewayHarness(t, GatewayConfig{HiddenDelay: 30 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, h.cache.Put(ctx, "device-profile-2", capture.Identity{
		Name: "Dana", Email: "dana@example.com", Phone: "050-123-4567",
	}))
	conn := h.dial(t, ctx, h.task.ID, "device-profile-2")
	readUntil(t, ctx, conn, frameLead)

	send(t, ctx, conn, inboundFrame{Type: frameVisibility, Hidden: true})

	require.Eventually(t, func() bool { return len(h.queue.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "hidden", h.queue.snapshot()[0].trigger)
}

func TestGatewayRejectsBadFrames(t *testing.T) {
	h := newGatewayHarness(t, GatewayConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, h.task.ID, "")
	readUntil(t, ctx, conn, frameStage)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{")))
	assert.Equal(t, "malformed frame", readUntil(t, ctx, conn, frameError).Error)

	send(t, ctx, conn, inboundFrame{Type: "dance"})
	assert.Equal(t, "unknown frame type", readUntil(t, ctx, conn, frameError).Error)

	bad := 9
	send(t, ctx, conn, inboundFrame{Type: frameComplete, Rating: &bad})
	assert.Contains(t, readUntil(t, ctx, conn, frameError).Error, "rating")

	send(t, ctx, conn, inboundFrame{Type: framePing})
	readUntil(t, ctx, conn, framePong)
}

func TestGatewayUnknownTaskIsNotUpgraded(t *testing.T) {
	h := newGatewayHarness(t, GatewayConfig{})

	resp, err := http.Get(h.sessionURL("http", uuid.NewString()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(h.sessionURL("http", "not-a-uuid"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProfileSanitizing(t *testing.T) {
	g := &Gateway{val: validator.New()}
	assert.Equal(t, "device-profile-1", g.profile(" device-profile-1 "))
	assert.Empty(t, g.profile("short"))
	assert.Empty(t, g.profile(strings.Repeat("x", 200)))
	assert.Empty(t, g.profile(""))
}
