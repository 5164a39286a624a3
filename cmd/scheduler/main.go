package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel_backend/internal/adapters"
	"funnel_backend/internal/adapters/storage"
	"funnel_backend/internal/agent"
	"funnel_backend/internal/conversations"
	"funnel_backend/internal/email"
	"funnel_backend/internal/events"
	"funnel_backend/internal/leads"
	"funnel_backend/internal/notification"
	notificationports "funnel_backend/internal/notification/ports"
	notificationservice "funnel_backend/internal/notification/service"
	"funnel_backend/internal/scheduler"
	"funnel_backend/internal/tasks"
	"funnel_backend/platform/ai"
	"funnel_backend/platform/config"
	"funnel_backend/platform/db"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The scheduler process runs queued notification dispatches: beacons handed
// off by the API and the abandonment safety net.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	llm, err := ai.NewModel(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize language model", "error", err)
		panic("failed to initialize language model: " + err.Error())
	}
	analyzer, err := agent.NewConversationAnalyzer(llm)
	if err != nil {
		panic("failed to initialize conversation analyzer: " + err.Error())
	}

	var archiver notificationports.Archiver
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		archiver = storage.NewTranscriptArchive(storageSvc, cfg.GetMinIOBucketTranscripts())
	}

	tasksModule := tasks.NewModule(pool, cfg)
	leadsModule := leads.NewModule(pool, tasksModule.Service(), eventBus, val, log, nil)
	conversationsModule := conversations.NewModule(pool, leadsModule.Service(), val)

	notificationModule := notification.NewModule(notification.Deps{
		Leads:         adapters.NewNotificationLedger(leadsModule.Repository()),
		Tasks:         adapters.NewNotificationTargets(tasksModule.Service(), tasksModule.Repository()),
		Conversations: adapters.NewConversationStore(conversationsModule.Service()),
		Analyzer:      adapters.NewNotificationAnalyzer(analyzer),
		Archiver:      archiver,
		Sender:        sender,
		Bus:           eventBus,
		Validator:     val,
		Log:           log,
	}, notificationservice.Config{
		AnalysisMinTurns: cfg.GetAnalysisMinTurns(),
		ClaimTTL:         cfg.GetNotifyClaimTTL(),
		AppBaseURL:       cfg.GetAppBaseURL(),
	})

	worker, err := scheduler.NewWorker(cfg, adapters.NewNotificationDispatcher(notificationModule.Service()), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
