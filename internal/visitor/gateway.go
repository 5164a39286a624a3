package visitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"funnel_backend/internal/arbiter"
	"funnel_backend/internal/capture"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"
	"funnel_backend/platform/validator"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	readLimit    = 16 << 10
	writeTimeout = 5 * time.Second
	inboxSize    = 16
	// drainTimeout bounds the frames still queued when the socket closes.
	drainTimeout = 30 * time.Second
)

// GatewayConfig tunes per-tab behaviour.
type GatewayConfig struct {
	CaptureAfterTurns int
	InactivityTimeout time.Duration
	HiddenDelay       time.Duration
	OriginPatterns    []string
	// Clock overrides the arbiter's timers in tests.
	Clock arbiter.Clock
}

// Gateway hosts one capture session and one notification arbiter per
// websocket connection.
type Gateway struct {
	cfg      GatewayConfig
	tasks    TaskLoader
	session  capture.Deps
	notifier Notifier
	queue    BeaconQueue
	val      *validator.Validator
	log      *logger.Logger
	metrics  *metrics.Recorder
}

func NewGateway(cfg GatewayConfig, tasks TaskLoader, session capture.Deps, notifier Notifier, queue BeaconQueue, val *validator.Validator, log *logger.Logger, rec *metrics.Recorder) *Gateway {
	if len(cfg.OriginPatterns) == 0 {
		cfg.OriginPatterns = []string{"*"}
	}
	session.Metrics = rec
	return &Gateway{
		cfg:      cfg,
		tasks:    tasks,
		session:  session,
		notifier: notifier,
		queue:    queue,
		val:      val,
		log:      log,
		metrics:  rec,
	}
}

// ServeHTTP upgrades GET /tasks/{taskId}/session?profile=... to a websocket.
// It is mounted on the plain mux because the upgrade hijacks the
// connection, which gin's response writer refuses once headers are out.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(r.PathValue("taskId"))
	if err != nil {
		httpkit.WriteError(w, apperr.BadRequest("invalid task id"))
		return
	}
	task, err := g.tasks.LoadSessionTask(r.Context(), taskID)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.cfg.OriginPatterns,
	})
	if err != nil {
		g.log.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	ws.SetReadLimit(readLimit)

	sessionID := uuid.NewString()
	log := g.log.WithSessionID(sessionID)
	g.metrics.SessionOpened()
	defer g.metrics.SessionClosed()

	t := &tab{
		ws:  ws,
		log: log,
	}
	t.session = capture.NewSession(capture.Config{
		TaskID:            task.ID,
		Script:            task.Script,
		OpeningQuestion:   task.OpeningQuestion,
		Profile:           g.profile(r.URL.Query().Get("profile")),
		CaptureAfterTurns: g.cfg.CaptureAfterTurns,
	}, g.session, log)
	t.arbiter = arbiter.New(arbiter.Config{
		InactivityTimeout: g.cfg.InactivityTimeout,
		HiddenDelay:       g.cfg.HiddenDelay,
		Clock:             g.cfg.Clock,
	}, t.session.LeadID, &delivery{
		taskID:   task.ID,
		notifier: g.notifier,
		queue:    g.queue,
		log:      log,
	}, log, g.metrics)

	// The unload dispatch reads the stored transcript, so the last save
	// lands first. LeadID stays readable after Close.
	defer t.arbiter.Unload()
	defer t.session.Close()

	t.run(r.Context())
	_ = ws.Close(websocket.StatusNormalClosure, "session ended")
}

// profile returns the cache key the tab offered, or "" when it is unusable.
func (g *Gateway) profile(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if err := g.val.Var(raw, "min=8,max=128,printascii"); err != nil {
		return ""
	}
	return raw
}

// tab is one live connection.
type tab struct {
	ws      *websocket.Conn
	session *capture.Session
	arbiter *arbiter.Arbiter
	log     *logger.Logger

	writeMu  sync.Mutex
	lastLead uuid.UUID
}

func (t *tab) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.publish(ctx, t.session.Start(ctx))
	t.arbiter.Start()

	// Slow inputs run on their own goroutine so visibility and activity
	// frames are never stuck behind a model call. They keep running after
	// the socket goes away: a phone number sent just before the tab closed
	// still has to resolve the lead.
	work, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()
	inbox := make(chan inboundFrame, inboxSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for f := range inbox {
			t.handleSlow(work, f)
		}
	}()
	defer func() {
		close(inbox)
		deadline := time.AfterFunc(drainTimeout, stopWork)
		wg.Wait()
		deadline.Stop()
	}()

	for {
		_, data, err := t.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				t.log.Debug("websocket read ended", slog.String("error", err.Error()))
			}
			return
		}

		var f inboundFrame
		if err := json.Unmarshal(data, &f); err != nil {
			t.send(ctx, outboundFrame{Type: frameError, Error: "malformed frame"})
			continue
		}

		switch f.Type {
		case frameActivity:
			t.arbiter.Activity()
		case frameVisibility:
			t.arbiter.VisibilityChanged(f.Hidden)
		case framePing:
			t.send(ctx, outboundFrame{Type: framePong})
		case frameMessage, frameIdentity, frameComplete:
			if f.Type == frameMessage {
				t.arbiter.Activity()
			}
			select {
			case inbox <- f:
			default:
				t.send(ctx, outboundFrame{Type: frameError, Error: "too many pending messages"})
			}
		default:
			t.send(ctx, outboundFrame{Type: frameError, Error: "unknown frame type"})
		}
	}
}

func (t *tab) handleSlow(ctx context.Context, f inboundFrame) {
	switch f.Type {
	case frameMessage:
		if strings.TrimSpace(f.Text) == "" {
			return
		}
		t.publish(ctx, t.session.Submit(ctx, f.Text))
	case frameIdentity:
		if f.Identity == nil {
			t.send(ctx, outboundFrame{Type: frameError, Error: "identity missing"})
			return
		}
		t.publish(ctx, t.session.Adopt(ctx, *f.Identity))
	case frameComplete:
		if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
			t.send(ctx, outboundFrame{Type: frameError, Error: "rating must be between 1 and 5"})
			return
		}
		dispatched, err := t.arbiter.Complete(ctx, f.Rating)
		if err != nil {
			t.send(ctx, outboundFrame{Type: frameError, Error: "notification failed"})
			return
		}
		t.send(ctx, outboundFrame{Type: frameCompleted, Dispatched: &dispatched})
	}
}

// publish pushes the session state after one input.
func (t *tab) publish(ctx context.Context, out capture.Output) {
	t.send(ctx, outboundFrame{Type: frameTranscript, Transcript: out.Transcript})
	t.send(ctx, outboundFrame{Type: frameStage, Stage: out.Stage})
	if out.Notice != "" {
		t.send(ctx, outboundFrame{Type: frameNotice, Text: out.Notice})
	}
	if out.LeadID != uuid.Nil && out.LeadID != t.lastLead {
		t.lastLead = out.LeadID
		id := out.LeadID
		t.send(ctx, outboundFrame{Type: frameLead, LeadID: &id})
	}
}

func (t *tab) send(ctx context.Context, f outboundFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.ws.Write(ctx, websocket.MessageText, data); err != nil && websocket.CloseStatus(err) == -1 {
		t.log.Debug("websocket write failed", slog.String("error", err.Error()))
	}
}
