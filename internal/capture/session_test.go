package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"funnel_backend/internal/transcript"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResponder struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	history []transcript.Transcript
}

func (r *countingResponder) Reply(_ context.Context, _ string, history transcript.Transcript, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", errors.New("model unavailable")
	}
	r.calls++
	r.history = append(r.history, history)
	return fmt.Sprintf("reply %d", r.calls), nil
}

type fakeResolver struct {
	leadID     uuid.UUID
	resolveErr error
	findID     uuid.UUID
	findErr    error
	resolved   []Identity
	found      int
}

func (f *fakeResolver) Resolve(_ context.Context, _ uuid.UUID, id Identity) (uuid.UUID, error) {
	f.resolved = append(f.resolved, id)
	return f.leadID, f.resolveErr
}

func (f *fakeResolver) FindByIdentity(context.Context, uuid.UUID, Identity) (uuid.UUID, error) {
	f.found++
	return f.findID, f.findErr
}

type recordingSaver struct {
	mu    sync.Mutex
	saves []transcript.Transcript
}

func (r *recordingSaver) Save(_ context.Context, _ uuid.UUID, tr transcript.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, tr)
	return nil
}

func (r *recordingSaver) last() (transcript.Transcript, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return nil, false
	}
	return r.saves[len(r.saves)-1], true
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]Identity
}

func (c *mapCache) Get(_ context.Context, profile string) (Identity, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.m[profile]
	return id, ok, nil
}

func (c *mapCache) Put(_ context.Context, profile string, id Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]Identity{}
	}
	c.m[profile] = id
	return nil
}

type harness struct {
	session   *Session
	responder *countingResponder
	resolver  *fakeResolver
	saver     *recordingSaver
	cache     *mapCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		responder: &countingResponder{},
		resolver:  &fakeResolver{leadID: uuid.New()},
		saver:     &recordingSaver{},
		cache:     &mapCache{},
	}
	h.session = NewSession(Config{
		TaskID:          uuid.New(),
		Script:          "Sell kitchens",
		OpeningQuestion: "What are you looking for?",
		Profile:         "profile-1",
	}, Deps{
		Responder: h.responder,
		Resolver:  h.resolver,
		Saver:     h.saver,
		Cache:     h.cache,
	}, logger.Discard())
	t.Cleanup(h.session.Close)
	return h
}

func TestStartAppendsOpeningQuestion(t *testing.T) {
	h := newHarness(t)
	out := h.session.Start(context.Background())

	require.Len(t, out.Transcript, 1)
	assert.Equal(t, transcript.SpeakerAgent, out.Transcript[0].Speaker)
	assert.Equal(t, "What are you looking for?", out.Transcript[0].Text)
	assert.Equal(t, StageFreeChat, out.Stage)
	assert.Equal(t, 0, out.Transcript.VisitorTurns())
}

func TestFullCaptureScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.session.Start(ctx)

	out := h.session.Submit(ctx, "I need a new kitchen")
	assert.Equal(t, StageFreeChat, out.Stage)

	out = h.session.Submit(ctx, "Something modern")
	require.Equal(t, StageAskName, out.Stage)
	last, _ := out.Transcript.Last()
	assert.Equal(t, defaultPrompts.AskName, last.Text)
	assert.True(t, last.Capture)

	out = h.session.Submit(ctx, "Dana")
	require.Equal(t, StageAskEmail, out.Stage)

	out = h.session.Submit(ctx, "not-an-email")
	require.Equal(t, StageAskEmail, out.Stage)
	last, _ = out.Transcript.Last()
	assert.Equal(t, defaultPrompts.RetryEmail, last.Text)

	out = h.session.Submit(ctx, "dana@example.com")
	require.Equal(t, StageAskPhone, out.Stage)

	out = h.session.Submit(ctx, "12345")
	require.Equal(t, StageAskPhone, out.Stage)
	last, _ = out.Transcript.Last()
	assert.Equal(t, defaultPrompts.RetryPhone, last.Text)

	out = h.session.Submit(ctx, "050-123-4567")
	require.Equal(t, StageDone, out.Stage)
	assert.Equal(t, defaultPrompts.Thanks, out.Notice)
	assert.Equal(t, h.resolver.leadID, out.LeadID)
	require.Len(t, h.resolver.resolved, 1)
	assert.Equal(t, Identity{Name: "Dana", Email: "dana@example.com", Phone: "050-123-4567"}, h.resolver.resolved[0])

	// The interrupted reply is shown again so the visitor knows what to answer.
	last, _ = out.Transcript.Last()
	assert.Equal(t, "reply 2", last.Text)

	// Only the two chat turns count; capture answers never do.
	assert.Equal(t, 2, out.Transcript.VisitorTurns())
	assert.Equal(t, 2, h.responder.calls)

	cached, ok, err := h.cache.Get(ctx, "profile-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Dana", cached.Name)

	out = h.session.Submit(ctx, "When can you come?")
	assert.Equal(t, StageDone, out.Stage)
	assert.Equal(t, 3, out.Transcript.VisitorTurns())

	h.session.Close()
	saved, ok := h.saver.last()
	require.True(t, ok)
	assert.Equal(t, out.Transcript, saved)
}

func TestCaptureAnswersStayFlagged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.session.Start(ctx)
	for _, msg := range []string{"hi", "kitchen", "Dana", "dana@example.com", "0501234567", "next question"} {
		h.session.Submit(ctx, msg)
	}
	require.Equal(t, 3, h.responder.calls)
	history := h.responder.history[2]
	assert.Equal(t, 2, history.VisitorTurns())
	captured := 0
	for _, m := range history {
		if m.Capture && m.Speaker == transcript.SpeakerVisitor {
			captured++
		}
	}
	assert.Equal(t, 3, captured, "identity answers stay flagged so they are never counted as turns")
}

func TestResponderFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.session.Start(ctx)
	h.responder.fail = true

	out := h.session.Submit(ctx, "hello")
	assert.Equal(t, defaultPrompts.ResponderUnavailable, out.Notice)
	assert.Len(t, out.Transcript, 1)
	assert.Equal(t, StageFreeChat, out.Stage)

	h.responder.fail = false
	out = h.session.Submit(ctx, "hello")
	assert.Empty(t, out.Notice)
	assert.Len(t, out.Transcript, 3)
}

func TestEmptyNameRePrompts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.session.Start(ctx)
	h.session.Submit(ctx, "one")
	h.session.Submit(ctx, "two")

	out := h.session.Submit(ctx, "   ")
	assert.Equal(t, StageAskName, out.Stage)
	last, _ := out.Transcript.Last()
	assert.Equal(t, defaultPrompts.RetryName, last.Text)
}

func TestFastPathFromCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.cache.Put(ctx, "profile-1", Identity{Name: "Dana", Email: "dana@example.com", Phone: "0501234567"}))

	out := h.session.Start(ctx)
	assert.Equal(t, StageDone, out.Stage)
	assert.Equal(t, h.resolver.leadID, out.LeadID)

	out = h.session.Submit(ctx, "hello again")
	assert.Equal(t, StageDone, out.Stage)
	out = h.session.Submit(ctx, "more")
	out = h.session.Submit(ctx, "and more")
	assert.Equal(t, StageDone, out.Stage, "a known visitor is never asked again")
}

func TestStaleCacheEntryRunsCapture(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.cache.Put(ctx, "profile-1", Identity{Name: "Dana", Email: "dana@example.com", Phone: "+31501234567"}))

	out := h.session.Start(ctx)
	assert.Equal(t, StageFreeChat, out.Stage)
	assert.Equal(t, uuid.Nil, out.LeadID)
	assert.Empty(t, h.resolver.resolved)
}

func TestAdoptBrowserIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.session.Start(ctx)

	out := h.session.Adopt(ctx, Identity{Name: "Dana", Email: "bad", Phone: "0501234567"})
	assert.Equal(t, StageFreeChat, out.Stage)

	out = h.session.Adopt(ctx, Identity{Name: "Dana", Email: "dana@example.com", Phone: "0501234567"})
	assert.Equal(t, StageDone, out.Stage)
	_, ok, _ := h.cache.Get(ctx, "profile-1")
	assert.True(t, ok)
}

func TestResolverFallbacks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	fallback := uuid.New()
	h.resolver.resolveErr = errors.New("db down")
	h.resolver.findID = fallback
	require.NoError(t, h.cache.Put(ctx, "profile-1", Identity{Name: "Dana", Email: "dana@example.com", Phone: "0501234567"}))

	out := h.session.Start(ctx)
	assert.Equal(t, fallback, out.LeadID)
	assert.Equal(t, 1, h.resolver.found)
}

func TestNoLeadStillCompletesCapture(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.resolver.leadID = uuid.Nil
	h.resolver.findErr = errors.New("db down")
	h.session.Start(ctx)

	for _, msg := range []string{"one", "two", "Dana", "dana@example.com", "0501234567"} {
		h.session.Submit(ctx, msg)
	}
	assert.Equal(t, StageDone, h.session.Stage())
	_, ok := h.session.LeadID()
	assert.False(t, ok)

	h.session.Submit(ctx, "three")
	h.session.Close()
	_, saved := h.saver.last()
	assert.False(t, saved, "nothing is saved without a lead")
}

func TestCachedReplyIsNotDuplicated(t *testing.T) {
	h := newHarness(t)
	h.session.tr = transcript.Transcript{{Speaker: transcript.SpeakerAgent, Text: "reply 2"}}
	h.session.cachedReply = "reply 2"

	h.session.appendCachedReply()
	h.session.appendCachedReply()
	assert.Len(t, h.session.tr, 1)
}

func TestSaveQueueKeepsLatest(t *testing.T) {
	saver := &recordingSaver{}
	q := newSaveQueue(saver, logger.Discard())
	leadID := uuid.New()

	for i := 1; i <= 20; i++ {
		q.enqueue(leadID, transcript.Transcript{{Speaker: transcript.SpeakerVisitor, Text: fmt.Sprint(i)}})
	}
	q.close()

	last, ok := saver.last()
	require.True(t, ok)
	assert.Equal(t, "20", last[0].Text)
	assert.LessOrEqual(t, len(saver.saves), 20)
}
