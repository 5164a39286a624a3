// Package service implements the notification composer: the single
// idempotent operation that turns a lead id into one owner email.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"funnel_backend/internal/email"
	"funnel_backend/internal/events"
	"funnel_backend/internal/notification/ports"
	"funnel_backend/internal/transcript"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	VariantAnalysis      = "analysis"
	VariantLowEngagement = "low_engagement"

	outcomeSent            = "sent"
	outcomeAlreadyNotified = "already_notified"
	outcomeInProgress      = "in_progress"
	outcomeFailed          = "failed"

	msgLeadNotFound  = "lead not found"
	msgNoRecipient   = "task has no notification address"
	msgSendFailed    = "failed to send notification"
	msgInvalidRating = "rating must be between 1 and 5"
	msgComposeFailed = "failed to compose notification"
	msgLoadFailed    = "failed to load notification data"

	defaultClaimTTL        = 2 * time.Minute
	defaultAnalysisTimeout = 90 * time.Second
)

// Config tunes the composer.
type Config struct {
	AnalysisMinTurns int
	ClaimTTL         time.Duration
	AnalysisTimeout  time.Duration
	AppBaseURL       string
	Now              func() time.Time
}

// Result reports what Dispatch did.
type Result struct {
	AlreadyNotified bool
	InProgress      bool
	Variant         string
	VisitorTurns    int
}

type Service struct {
	leads         ports.LeadLedger
	tasks         ports.TaskTargets
	conversations ports.Conversations
	analyzer      ports.Analyzer
	sender        email.Sender
	bus           events.Bus
	log           *logger.Logger
	metrics       *metrics.Recorder
	cfg           Config
}

// New builds the composer. analyzer may be nil, in which case every
// notification uses the low-engagement variant.
func New(leads ports.LeadLedger, tasks ports.TaskTargets, conversations ports.Conversations, analyzer ports.Analyzer, sender email.Sender, bus events.Bus, log *logger.Logger, rec *metrics.Recorder, cfg Config) *Service {
	if cfg.AnalysisMinTurns <= 0 {
		cfg.AnalysisMinTurns = 4
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = defaultClaimTTL
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = defaultAnalysisTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		leads:         leads,
		tasks:         tasks,
		conversations: conversations,
		analyzer:      analyzer,
		sender:        sender,
		bus:           bus,
		log:           log,
		metrics:       rec,
		cfg:           cfg,
	}
}

// Dispatch sends the owner notification for a lead at most once. Repeated
// calls after a successful send are no-ops that report AlreadyNotified.
func (s *Service) Dispatch(ctx context.Context, leadID uuid.UUID) (Result, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	if lead.Notified {
		s.record(leadID, outcomeAlreadyNotified, "", 0)
		return Result{AlreadyNotified: true}, nil
	}

	claimed, err := s.leads.ClaimNotification(ctx, leadID, s.cfg.Now().Add(s.cfg.ClaimTTL))
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, msgLoadFailed, err).WithOp("notification.Dispatch")
	}
	if !claimed {
		// Either a concurrent dispatch finished in between or still holds the lease.
		if current, err := s.leads.GetLead(ctx, leadID); err == nil && current.Notified {
			s.record(leadID, outcomeAlreadyNotified, "", 0)
			return Result{AlreadyNotified: true}, nil
		}
		s.record(leadID, outcomeInProgress, "", 0)
		return Result{InProgress: true}, nil
	}

	result, err := s.compose(ctx, lead)
	if err != nil {
		s.release(ctx, leadID)
		s.record(leadID, outcomeFailed, result.Variant, result.VisitorTurns)
		return Result{}, err
	}

	if err := s.leads.MarkNotified(ctx, leadID); err != nil {
		// The email is out; the lease keeps duplicates away until it expires.
		s.log.WithContext(ctx).DatabaseError("mark lead notified", err)
	}
	s.record(leadID, outcomeSent, result.Variant, result.VisitorTurns)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadNotified{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			TaskID:       lead.TaskID,
			Variant:      result.Variant,
			VisitorTurns: result.VisitorTurns,
		})
	}
	return result, nil
}

// Complete records the visitor's rating and dispatches through the same
// idempotent path as every other trigger.
func (s *Service) Complete(ctx context.Context, taskID, leadID uuid.UUID, rating *int) (Result, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return Result{}, apperr.Validation(msgInvalidRating)
	}
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	if lead.TaskID != taskID {
		return Result{}, apperr.NotFound(msgLeadNotFound)
	}
	if rating != nil {
		if err := s.leads.SetRating(ctx, leadID, *rating); err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return Result{}, apperr.NotFound(msgLeadNotFound)
			}
			return Result{}, apperr.Wrap(apperr.KindInternal, "failed to store rating", err)
		}
	}
	return s.Dispatch(ctx, leadID)
}

func (s *Service) getLead(ctx context.Context, leadID uuid.UUID) (ports.Lead, error) {
	lead, err := s.leads.GetLead(ctx, leadID)
	if errors.Is(err, ports.ErrNotFound) {
		return ports.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return ports.Lead{}, apperr.Wrap(apperr.KindInternal, msgLoadFailed, err)
	}
	return lead, nil
}

func (s *Service) compose(ctx context.Context, lead ports.Lead) (Result, error) {
	var (
		target ports.Target
		tr     transcript.Transcript
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		target, err = s.tasks.GetNotificationTarget(gctx, lead.TaskID)
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tr, err = s.conversations.GetTranscript(gctx, lead.ID)
		if err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return Result{}, apperr.NotFound("task not found")
		}
		return Result{}, apperr.Wrap(apperr.KindInternal, msgLoadFailed, err)
	}

	recipient := strings.TrimSpace(target.Recipient())
	if recipient == "" {
		return Result{}, apperr.Configuration(msgNoRecipient).WithDetails(map[string]string{"taskId": lead.TaskID.String()})
	}

	turns := tr.VisitorTurns()
	result := Result{VisitorTurns: turns, Variant: VariantLowEngagement}
	contact := email.LeadContact{Name: lead.Name, Phone: lead.Phone, Email: lead.Email, Rating: lead.Rating}
	dashboard := s.dashboardURL(lead.TaskID)

	var (
		subject, body string
		err           error
	)
	if analysis, ok := s.analyze(ctx, lead.ID, tr, turns); ok {
		result.Variant = VariantAnalysis
		subject, body, err = email.RenderLeadAnalysis(email.LeadAnalysisData{
			TaskTitle:    target.Title,
			Lead:         contact,
			VisitorTurns: turns,
			Summary:      analysis.Summary,
			Pains:        analysis.Pains,
			Benefits:     analysis.Benefits,
			Script:       analysis.Script,
			DashboardURL: dashboard,
		})
	} else {
		subject, body, err = email.RenderLeadLowEngagement(email.LeadLowEngagementData{
			TaskTitle:    target.Title,
			Lead:         contact,
			VisitorTurns: turns,
			DashboardURL: dashboard,
		})
	}
	if err != nil {
		return result, apperr.Wrap(apperr.KindInternal, msgComposeFailed, err)
	}

	if err := s.sender.Send(ctx, recipient, subject, body); err != nil {
		return result, apperr.Transport(msgSendFailed, err)
	}
	return result, nil
}

// analyze runs the analyzer when the conversation is long enough. Failures
// are logged and degrade to the low-engagement email.
func (s *Service) analyze(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript, turns int) (ports.Analysis, bool) {
	if s.analyzer == nil || turns < s.cfg.AnalysisMinTurns {
		return ports.Analysis{}, false
	}

	actx, cancel := context.WithTimeout(ctx, s.cfg.AnalysisTimeout)
	defer cancel()

	analysis, err := s.analyzer.Analyze(actx, leadID, tr)
	if err != nil {
		s.log.WithContext(ctx).Warn("conversation analysis failed",
			slog.String("lead_id", leadID.String()),
			slog.String("error", err.Error()),
		)
		return ports.Analysis{}, false
	}
	if strings.TrimSpace(analysis.Summary) == "" {
		return ports.Analysis{}, false
	}
	if err := s.conversations.SetSummary(ctx, leadID, analysis.Summary); err != nil {
		s.log.WithContext(ctx).DatabaseError("store conversation summary", err)
	}
	return analysis, true
}

func (s *Service) release(ctx context.Context, leadID uuid.UUID) {
	if err := s.leads.ReleaseNotificationClaim(context.WithoutCancel(ctx), leadID); err != nil {
		s.log.WithContext(ctx).DatabaseError("release notification claim", err)
	}
}

func (s *Service) record(leadID uuid.UUID, outcome, variant string, turns int) {
	s.metrics.Notification(outcome, variant)
	s.log.NotificationEvent(leadID.String(), outcome, variant, turns)
}

func (s *Service) dashboardURL(taskID uuid.UUID) string {
	base := strings.TrimRight(s.cfg.AppBaseURL, "/")
	if base == "" {
		return ""
	}
	return base + "/dashboard/tasks/" + taskID.String() + "/leads"
}
