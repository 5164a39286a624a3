package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"funnel_backend/internal/transcript"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

const saveTimeout = 10 * time.Second

// saveQueue coalesces transcript saves. Each save carries the whole
// transcript, so only the latest pending one is written.
type saveQueue struct {
	saver ConversationSaver
	log   *logger.Logger

	mu      sync.Mutex
	leadID  uuid.UUID
	pending transcript.Transcript
	dirty   bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSaveQueue(saver ConversationSaver, log *logger.Logger) *saveQueue {
	q := &saveQueue{
		saver:   saver,
		log:     log,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *saveQueue) enqueue(leadID uuid.UUID, tr transcript.Transcript) {
	q.mu.Lock()
	q.leadID = leadID
	q.pending = tr
	q.dirty = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *saveQueue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.wake:
			q.flush()
		case <-q.done:
			q.flush()
			return
		}
	}
}

func (q *saveQueue) flush() {
	q.mu.Lock()
	if !q.dirty {
		q.mu.Unlock()
		return
	}
	leadID, tr := q.leadID, q.pending
	q.dirty = false
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := q.saver.Save(ctx, leadID, tr); err != nil {
		q.log.Warn("transcript save failed",
			slog.String("lead_id", leadID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// close writes any pending transcript and stops the worker.
func (q *saveQueue) close() {
	q.once.Do(func() { close(q.done) })
	<-q.stopped
}
