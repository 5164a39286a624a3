package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"funnel_backend/internal/adapters"
	"funnel_backend/internal/adapters/storage"
	"funnel_backend/internal/agent"
	"funnel_backend/internal/capture"
	"funnel_backend/internal/conversations"
	"funnel_backend/internal/email"
	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/http/router"
	"funnel_backend/internal/leads"
	"funnel_backend/internal/notification"
	notificationports "funnel_backend/internal/notification/ports"
	notificationservice "funnel_backend/internal/notification/service"
	"funnel_backend/internal/scheduler"
	"funnel_backend/internal/tasks"
	"funnel_backend/internal/visitor"
	"funnel_backend/platform/ai"
	"funnel_backend/platform/config"
	"funnel_backend/platform/db"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)
	rec := metrics.New()
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
	responder, err := agent.NewChatResponder(llm)
	if err != nil {
		panic("failed to initialize chat responder: " + err.Error())
	}
	analyzer, err := agent.NewConversationAnalyzer(llm)
	if err != nil {
		panic("failed to initialize conversation analyzer: " + err.Error())
	}

	jobs, closeJobs := initJobClient(cfg, log)
	if closeJobs != nil {
		defer closeJobs()
	}

	identityCache := initIdentityCache(cfg, log)
	archiver := initArchiver(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	tasksModule := tasks.NewModule(pool, cfg)
	leadsModule := leads.NewModule(pool, tasksModule.Service(), eventBus, val, log, rec)
	conversationsModule := conversations.NewModule(pool, leadsModule.Service(), val)
	conversationStore := adapters.NewConversationStore(conversationsModule.Service())

	notificationModule := notification.NewModule(notification.Deps{
		Leads:         adapters.NewNotificationLedger(leadsModule.Repository()),
		Tasks:         adapters.NewNotificationTargets(tasksModule.Service(), tasksModule.Repository()),
		Conversations: conversationStore,
		Analyzer:      adapters.NewNotificationAnalyzer(analyzer),
		Archiver:      archiver,
		Sender:        sender,
		Bus:           eventBus,
		Validator:     val,
		Log:           log,
		Metrics:       rec,
	}, notificationservice.Config{
		AnalysisMinTurns: cfg.GetAnalysisMinTurns(),
		ClaimTTL:         cfg.GetNotifyClaimTTL(),
		AppBaseURL:       cfg.GetAppBaseURL(),
	})
	notifier := adapters.NewNotificationDispatcher(notificationModule.Service())

	var beacons visitor.BeaconQueue
	if jobs != nil {
		beacons = jobs
		leadsModule.SubscribeAbandonmentChecks(eventBus, jobs, log)
	}

	visitorModule := visitor.NewModule(visitor.Deps{
		Tasks:     adapters.NewVisitorTaskLoader(tasksModule.Service()),
		Responder: responder,
		Resolver:  adapters.NewCaptureLeadResolver(leadsModule.Service()),
		Saver:     conversationStore,
		Cache:     identityCache,
		Notifier:  notifier,
		Queue:     beacons,
		Validator: val,
		Log:       log,
		Metrics:   rec,
	}, visitor.GatewayConfig{
		CaptureAfterTurns: cfg.GetCaptureAfterTurns(),
		InactivityTimeout: cfg.GetInactivityTimeout(),
		HiddenDelay:       cfg.GetHiddenConfirmDelay(),
		OriginPatterns:    originPatterns(cfg),
	})

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		Metrics:  rec,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			tasksModule,
			leadsModule,
			conversationsModule,
			notificationModule,
			visitorModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}
	// Let in-flight archive and SSE handlers finish.
	eventBus.Wait()
}

// initJobClient returns nil when no Redis is configured; beacons then run
// in-process and the abandonment safety net is off.
func initJobClient(cfg *config.Config, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; beacons dispatch in-process and abandonment checks are disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg, cfg.GetAbandonmentSweepDelay())
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return nil, nil
	}
	return client, func() {
		_ = client.Close()
	}
}

func initIdentityCache(cfg *config.Config, log *logger.Logger) capture.IdentityCache {
	if cfg.GetRedisURL() == "" {
		return visitor.NewMemoryIdentityCache()
	}
	client, err := visitor.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize identity cache, using memory", "error", err)
		return visitor.NewMemoryIdentityCache()
	}
	return visitor.NewRedisIdentityCache(client)
}

// initArchiver returns nil when MinIO is not configured.
func initArchiver(ctx context.Context, cfg *config.Config, log *logger.Logger) notificationports.Archiver {
	if !cfg.IsMinIOEnabled() {
		log.Info("MinIO not configured; transcript archive disabled")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	bucket := cfg.GetMinIOBucketTranscripts()
	if err := withRetry(ctx, log, "ensure transcripts bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "transcriptsBucket", bucket)
	return storage.NewTranscriptArchive(storageSvc, bucket)
}

// originPatterns turns the CORS origin list into the host patterns the
// websocket handshake checks.
func originPatterns(cfg config.HTTPConfig) []string {
	if cfg.GetCORSAllowAll() {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(cfg.GetCORSOrigins()))
	for _, origin := range cfg.GetCORSOrigins() {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, strings.TrimSpace(origin))
	}
	return patterns
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
