// Package arbiter decides when a tab's single owner notification fires.
// Four triggers race for one guard; whichever sets it first dispatches and
// every later trigger is a no-op.
package arbiter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"

	"github.com/google/uuid"
)

type Trigger string

const (
	TriggerCompletion Trigger = "completion"
	TriggerInactivity Trigger = "inactivity"
	TriggerHidden     Trigger = "hidden"
	TriggerUnload     Trigger = "unload"
)

type Delivery string

const (
	// DeliveryBeacon is fire-and-forget and survives the tab going away.
	DeliveryBeacon Delivery = "beacon"
	// DeliveryRequest is awaited so its outcome can be observed.
	DeliveryRequest Delivery = "request"
)

// Payload is what both deliveries carry.
type Payload struct {
	LeadID  uuid.UUID
	Trigger Trigger
	Rating  *int
}

// Dispatcher carries a fired trigger to the notification composer.
type Dispatcher interface {
	Beacon(p Payload)
	Request(ctx context.Context, p Payload) error
}

type Config struct {
	InactivityTimeout time.Duration
	HiddenDelay       time.Duration
	Clock             Clock
}

type Arbiter struct {
	cfg     Config
	leadID  func() (uuid.UUID, bool)
	d       Dispatcher
	log     *logger.Logger
	metrics *metrics.Recorder

	fired     atomic.Bool
	closed    atomic.Bool
	hidden    atomic.Bool
	unloading atomic.Bool
	visGen    atomic.Uint64

	mu         sync.Mutex
	inactivity Timer
}

// New builds an arbiter. leadID is consulted at fire time, so a lead
// resolved after construction is picked up.
func New(cfg Config, leadID func() (uuid.UUID, bool), d Dispatcher, log *logger.Logger, rec *metrics.Recorder) *Arbiter {
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 2 * time.Minute
	}
	if cfg.HiddenDelay <= 0 {
		cfg.HiddenDelay = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Arbiter{cfg: cfg, leadID: leadID, d: d, log: log, metrics: rec}
}

// Start arms the inactivity timer.
func (a *Arbiter) Start() {
	a.Activity()
}

// Activity re-arms the inactivity timer.
func (a *Arbiter) Activity() {
	if a.closed.Load() || a.fired.Load() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inactivity != nil {
		a.inactivity.Stop()
	}
	a.inactivity = a.cfg.Clock.AfterFunc(a.cfg.InactivityTimeout, func() {
		_, _ = a.fire(context.Background(), TriggerInactivity, nil)
	})
}

// VisibilityChanged records the tab's visibility. A hidden tab fires after
// the hidden delay only if it stayed hidden the whole time.
func (a *Arbiter) VisibilityChanged(hidden bool) {
	a.hidden.Store(hidden)
	gen := a.visGen.Add(1)
	if !hidden || a.closed.Load() {
		return
	}
	a.cfg.Clock.AfterFunc(a.cfg.HiddenDelay, func() {
		if a.visGen.Load() != gen || !a.hidden.Load() {
			return
		}
		_, _ = a.fire(context.Background(), TriggerHidden, nil)
	})
}

// Complete fires for the visitor's explicit finish. It reports whether this
// call dispatched and the delivery error, if any.
func (a *Arbiter) Complete(ctx context.Context, rating *int) (bool, error) {
	return a.fire(ctx, TriggerCompletion, rating)
}

// Unload fires at teardown and disarms every timer.
func (a *Arbiter) Unload() {
	a.unloading.Store(true)
	_, _ = a.fire(context.Background(), TriggerUnload, nil)
	a.closed.Store(true)
	a.stopInactivity()
}

// Fired reports whether the guard is set.
func (a *Arbiter) Fired() bool {
	return a.fired.Load()
}

func (a *Arbiter) fire(ctx context.Context, trigger Trigger, rating *int) (bool, error) {
	if a.closed.Load() {
		return false, nil
	}
	leadID, ok := a.leadID()
	if !ok {
		a.log.Info("notification trigger without lead", slog.String("trigger", string(trigger)))
		return false, nil
	}
	if !a.fired.CompareAndSwap(false, true) {
		return false, nil
	}
	a.stopInactivity()

	p := Payload{LeadID: leadID, Trigger: trigger, Rating: rating}
	delivery := DeliveryRequest
	if a.hidden.Load() || a.unloading.Load() {
		delivery = DeliveryBeacon
	}
	a.metrics.TriggerFired(string(trigger), string(delivery))
	a.log.TriggerFired(leadID.String(), string(trigger), string(delivery))

	if delivery == DeliveryBeacon {
		a.d.Beacon(p)
		return true, nil
	}

	if err := a.d.Request(context.WithoutCancel(ctx), p); err != nil {
		a.log.Warn("notification request failed",
			slog.String("lead_id", leadID.String()),
			slog.String("trigger", string(trigger)),
			slog.String("error", err.Error()),
		)
		return true, err
	}
	return true, nil
}

func (a *Arbiter) stopInactivity() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inactivity != nil {
		a.inactivity.Stop()
		a.inactivity = nil
	}
}
