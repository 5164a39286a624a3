package visitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"funnel_backend/internal/arbiter"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyCall struct {
	leadID     uuid.UUID
	taskID     uuid.UUID
	rating     *int
	completion bool
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
	done  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 8)}
}

func (n *recordingNotifier) Notify(_ context.Context, leadID uuid.UUID) error {
	n.record(notifyCall{leadID: leadID})
	return n.err
}

func (n *recordingNotifier) NotifyCompletion(_ context.Context, taskID, leadID uuid.UUID, rating *int) error {
	n.record(notifyCall{leadID: leadID, taskID: taskID, rating: rating, completion: true})
	return n.err
}

func (n *recordingNotifier) record(c notifyCall) {
	n.mu.Lock()
	n.calls = append(n.calls, c)
	n.mu.Unlock()
	n.done <- struct{}{}
}

func (n *recordingNotifier) snapshot() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type queuedDispatch struct {
	leadID  uuid.UUID
	trigger string
}

type recordingQueue struct {
	mu    sync.Mutex
	items []queuedDispatch
	err   error
}

func (q *recordingQueue) EnqueueDispatch(_ context.Context, leadID uuid.UUID, trigger string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, queuedDispatch{leadID: leadID, trigger: trigger})
	return nil
}

func (q *recordingQueue) snapshot() []queuedDispatch {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queuedDispatch(nil), q.items...)
}

func waitNotified(t *testing.T, n *recordingNotifier) {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestBeaconGoesThroughQueue(t *testing.T) {
	leadID := uuid.New()
	queue := &recordingQueue{}
	notifier := newRecordingNotifier()
	d := &delivery{taskID: uuid.New(), notifier: notifier, queue: queue, log: logger.Discard()}

	d.Beacon(arbiter.Payload{LeadID: leadID, Trigger: arbiter.TriggerHidden})

	assert.Equal(t, []queuedDispatch{{leadID: leadID, trigger: "hidden"}}, queue.snapshot())
	assert.Empty(t, notifier.snapshot())
}

func TestBeaconFallsBackInlineWhenQueueFails(t *testing.T) {
	leadID := uuid.New()
	notifier := newRecordingNotifier()
	d := &delivery{
		taskID:   uuid.New(),
		notifier: notifier,
		queue:    &recordingQueue{err: errors.New("redis down")},
		log:      logger.Discard(),
	}

	d.Beacon(arbiter.Payload{LeadID: leadID, Trigger: arbiter.TriggerUnload})
	waitNotified(t, notifier)

	calls := notifier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, leadID, calls[0].leadID)
	assert.False(t, calls[0].completion)
}

func TestBeaconWithoutQueueRunsDetached(t *testing.T) {
	notifier := newRecordingNotifier()
	d := &delivery{taskID: uuid.New(), notifier: notifier, log: logger.Discard()}

	d.Beacon(arbiter.Payload{LeadID: uuid.New(), Trigger: arbiter.TriggerInactivity})
	waitNotified(t, notifier)
	assert.Len(t, notifier.snapshot(), 1)
}

func TestRequestRoutesCompletionWithRating(t *testing.T) {
	taskID, leadID := uuid.New(), uuid.New()
	notifier := newRecordingNotifier()
	queue := &recordingQueue{}
	d := &delivery{taskID: taskID, notifier: notifier, queue: queue, log: logger.Discard()}

	rating := 4
	require.NoError(t, d.Request(context.Background(), arbiter.Payload{LeadID: leadID, Trigger: arbiter.TriggerCompletion, Rating: &rating}))

	calls := notifier.snapshot()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].completion)
	assert.Equal(t, taskID, calls[0].taskID)
	require.NotNil(t, calls[0].rating)
	assert.Equal(t, 4, *calls[0].rating)
	assert.Empty(t, queue.snapshot())
}

func TestRequestPropagatesComposerError(t *testing.T) {
	notifier := newRecordingNotifier()
	notifier.err = errors.New("send failed")
	d := &delivery{taskID: uuid.New(), notifier: notifier, log: logger.Discard()}

	err := d.Request(context.Background(), arbiter.Payload{LeadID: uuid.New(), Trigger: arbiter.TriggerInactivity})
	assert.Error(t, err)
}
