package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"funnel_backend/platform/apperr"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Dispatcher sends the owner notification for a lead. It is idempotent, so
// retries and overlapping triggers are safe.
type Dispatcher interface {
	DispatchLead(ctx context.Context, leadID uuid.UUID, trigger string) error
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher Dispatcher
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, dispatcher Dispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := newWorker(dispatcher, log)
	w.server = server
	return w, nil
}

func newWorker(dispatcher Dispatcher, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:        mux,
		dispatcher: dispatcher,
		log:        log,
	}
	mux.HandleFunc(TaskNotificationDispatch, w.handleNotificationDispatch)
	mux.HandleFunc(TaskLeadAbandonmentCheck, w.handleLeadAbandonmentCheck)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationDispatchPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.dispatch(ctx, leadID, payload.Trigger)
}

func (w *Worker) handleLeadAbandonmentCheck(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadAbandonmentCheckPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.dispatch(ctx, leadID, "abandonment_check")
}

// dispatch retries only failures a later attempt can fix.
func (w *Worker) dispatch(ctx context.Context, leadID uuid.UUID, trigger string) error {
	err := w.dispatcher.DispatchLead(ctx, leadID, trigger)
	if err == nil {
		return nil
	}

	w.log.Warn("scheduled dispatch failed",
		slog.String("lead_id", leadID.String()),
		slog.String("trigger", trigger),
		slog.String("error", err.Error()),
	)

	switch apperr.GetKind(err) {
	case apperr.KindNotFound, apperr.KindValidation, apperr.KindConfiguration:
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}
