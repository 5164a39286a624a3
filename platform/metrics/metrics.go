// Package metrics exposes Prometheus counters for the funnel.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records funnel metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	triggers        *prometheus.CounterVec
	leadsResolved   *prometheus.CounterVec
	captureStages   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	archiveFailures prometheus.Counter
}

// New creates a Recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_notifications_total",
				Help: "Owner notification attempts by outcome and email variant",
			},
			[]string{"outcome", "variant"},
		),
		triggers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_notification_triggers_total",
				Help: "Arbiter triggers that won the single-fire guard, by trigger and delivery mode",
			},
			[]string{"trigger", "delivery"},
		),
		leadsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_leads_resolved_total",
				Help: "Lead resolutions by result (created, updated)",
			},
			[]string{"result"},
		),
		captureStages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_capture_stage_entered_total",
				Help: "Capture stage transitions by target stage",
			},
			[]string{"stage"},
		),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "funnel_visitor_sessions_active",
			Help: "Open visitor session websockets",
		}),
		archiveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "funnel_transcript_archive_failures_total",
			Help: "Transcript archive uploads that failed",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Notification records a composer outcome such as sent, already_notified or failed.
func (r *Recorder) Notification(outcome, variant string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(outcome, variant).Inc()
}

// TriggerFired records the trigger that won the guard.
func (r *Recorder) TriggerFired(trigger, delivery string) {
	if r == nil {
		return
	}
	r.triggers.WithLabelValues(trigger, delivery).Inc()
}

// LeadResolved records whether the resolver created or updated a lead.
func (r *Recorder) LeadResolved(created bool) {
	if r == nil {
		return
	}
	result := "updated"
	if created {
		result = "created"
	}
	r.leadsResolved.WithLabelValues(result).Inc()
}

// StageEntered records a capture stage transition.
func (r *Recorder) StageEntered(stage string) {
	if r == nil {
		return
	}
	r.captureStages.WithLabelValues(stage).Inc()
}

// SessionOpened increments the open session gauge.
func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.activeSessions.Inc()
}

// SessionClosed decrements the open session gauge.
func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.activeSessions.Dec()
}

// ArchiveFailed counts a failed transcript archive upload.
func (r *Recorder) ArchiveFailed() {
	if r == nil {
		return
	}
	r.archiveFailures.Inc()
}
