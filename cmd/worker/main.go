// Command worker hosts C12's Background Job Runtime: the typed queue's
// topic handlers, and the four periodic jobs from spec.md §4.12 driven by
// time.Ticker. It is a separate process from cmd/api so a burst of
// mailbox/browser-worker I/O never competes with request latency.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/apperror"
	"github.com/andreypavlenko/jobber/internal/platform/browser"
	"github.com/andreypavlenko/jobber/internal/platform/llm"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	gomail "github.com/andreypavlenko/jobber/internal/platform/mail"
	"github.com/andreypavlenko/jobber/internal/platform/notify"
	"github.com/andreypavlenko/jobber/internal/platform/postgres"
	"github.com/andreypavlenko/jobber/internal/platform/queue"
	"github.com/andreypavlenko/jobber/internal/platform/redis"

	appModel "github.com/andreypavlenko/jobber/modules/applications/model"
	appRepo "github.com/andreypavlenko/jobber/modules/applications/repository"

	jobRepo "github.com/andreypavlenko/jobber/modules/jobs/repository"
	jobService "github.com/andreypavlenko/jobber/modules/jobs/service"

	classifierService "github.com/andreypavlenko/jobber/modules/classifier/service"
	monitorModel "github.com/andreypavlenko/jobber/modules/monitor/model"
	monitorService "github.com/andreypavlenko/jobber/modules/monitor/service"

	notificationRepo "github.com/andreypavlenko/jobber/modules/notifications/repository"
	notificationService "github.com/andreypavlenko/jobber/modules/notifications/service"

	quotaRepo "github.com/andreypavlenko/jobber/modules/quota/repository"
	quotaService "github.com/andreypavlenko/jobber/modules/quota/service"

	userRepo "github.com/andreypavlenko/jobber/modules/users/repository"
)

const (
	topicMonitorProbe      = "monitor_probe"
	topicVerificationCheck = "verification_check"

	monitorTickInterval       = 10 * time.Minute
	verificationSweepInterval = 5 * time.Minute
	usageResetInterval        = time.Hour
	jobExpiryInterval         = 24 * time.Hour

	jobExpiryMaxAge = 90 * 24 * time.Hour

	// maxProbesPerUserPerTick caps how many monitor_probe jobs one
	// monitor_tick round enqueues for a single user, so one candidate
	// with hundreds of tracked applications can't starve everyone else's
	// probes out of the same round.
	maxProbesPerUserPerTick = 10
)

type monitorProbeJob struct {
	ApplicationID string `json:"application_id"`
}

type verificationCheckJob struct {
	ApplicationID string `json:"application_id"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.SampleRate,
		}); err != nil {
			appLogger.Warn("Failed to initialize Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	mailGateway := gomail.New(cfg.Mail)
	browserClient := browser.New(cfg.Browser)
	llmGateway := llm.New(cfg.LLM, appLogger)
	notifyGateway := notify.New(cfg.Notify)

	applicationRepository := appRepo.NewApplicationRepository(pgClient.Pool)
	jobRepository := jobRepo.NewJobRepository(pgClient.Pool)
	userRepository := userRepo.NewUserRepository(pgClient.Pool)
	notificationRepository := notificationRepo.NewNotificationRepository(pgClient.Pool)
	subscriptionRepository := quotaRepo.NewSubscriptionRepository(pgClient.Pool)
	usageEventRepository := quotaRepo.NewUsageEventRepository(pgClient.Pool)

	notificationSvc := notificationService.NewNotificationService(notificationRepository, userRepository, notifyGateway, appLogger)
	jobSvc := jobService.NewJobService(jobRepository)
	quotaSvc := quotaService.NewQuotaService(subscriptionRepository, usageEventRepository, appLogger)
	classifierSvc := classifierService.NewClassifierService(llmGateway, appLogger)
	monitorSvc := monitorService.NewMonitorService(mailGateway, browserClient, applicationGateway{repo: applicationRepository}, classifierSvc, appLogger)

	deadLetterSink := queue.NewPostgresDeadLetterSink(pgClient.Pool, notificationSvc, appLogger)
	jobQueue := queue.New(redisClient.Client, appLogger, deadLetterSink)

	jobQueue.Register(topicMonitorProbe, monitorProbeHandler(applicationRepository, userRepository, monitorSvc, appLogger), queue.Options{MaxAttempts: 3, BaseBackoff: 5 * time.Second})
	jobQueue.Register(topicVerificationCheck, verificationCheckHandler(applicationRepository, userRepository, monitorSvc, appLogger), queue.Options{MaxAttempts: 3, BaseBackoff: 10 * time.Second})

	go jobQueue.Run(ctx)

	appLogger.Info("Worker started",
		zap.Duration("monitor_tick", monitorTickInterval),
		zap.Duration("verification_sweep", verificationSweepInterval),
		zap.Duration("usage_reset_tick", usageResetInterval),
		zap.Duration("job_expiry_tick", jobExpiryInterval),
	)

	go runMonitorTick(ctx, applicationRepository, jobQueue, appLogger)
	go runVerificationSweep(ctx, applicationRepository, jobQueue, appLogger)
	go runUsageResetTick(ctx, quotaSvc, appLogger)
	go runJobExpiryTick(ctx, jobSvc, appLogger)

	<-ctx.Done()
	appLogger.Info("Worker shutting down")
	time.Sleep(time.Second) // let in-flight topic goroutines observe ctx.Done
}

// applicationGateway adapts the raw application repository onto
// monitor/ports.ApplicationGateway, since the worker has no reason to pull
// in the full ApplicationService (with its HTTP-facing DTO layer) just to
// commit a probe's transition and metadata writes.
type applicationGateway struct {
	repo *appRepo.ApplicationRepository
}

func (g applicationGateway) RequestTransition(ctx context.Context, id, newStatus string) error {
	app, err := g.repo.GetByIDAny(ctx, id)
	if err != nil {
		return err
	}
	app.Status = appModel.Status(newStatus)
	app.Timeline = append(app.Timeline, appModel.TimelineEvent{
		Type:      "status_change",
		CreatedAt: time.Now().UTC(),
		Metadata:  map[string]any{"new_status": newStatus, "source": "monitor"},
	})
	return g.repo.Update(ctx, app)
}

func (g applicationGateway) AppendCommunication(ctx context.Context, id string, msg monitorModel.NewMessage) error {
	app, err := g.repo.GetByIDAny(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range app.Communications {
		if c.MessageID == msg.ID {
			return nil
		}
	}
	app.Communications = append(app.Communications, appModel.Communication{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Direction: "inbound",
		Channel:   "email",
		From:      msg.From,
		Subject:   msg.Subject,
		Snippet:   msg.Snippet,
		Timestamp: msg.Timestamp,
	})
	return g.repo.Update(ctx, app)
}

func (g applicationGateway) UpdateProbeMetadata(ctx context.Context, id string, lastCheck time.Time, checkCount int) error {
	app, err := g.repo.GetByIDAny(ctx, id)
	if err != nil {
		return err
	}
	app.LastResponseCheck = &lastCheck
	app.ResponseCheckCount += checkCount
	return g.repo.Update(ctx, app)
}

func monitorProbeHandler(apps *appRepo.ApplicationRepository, users *userRepo.UserRepository, monitor *monitorService.MonitorService, log *logger.Logger) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		var payload monitorProbeJob
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return apperror.Wrap(apperror.KindInvariant, "worker: malformed monitor_probe payload", err)
		}

		app, err := apps.GetByIDAny(ctx, payload.ApplicationID)
		if err != nil {
			return apperror.Wrap(apperror.KindNotFound, "worker: application not found for probe", err)
		}
		user, err := users.GetByID(ctx, app.UserID)
		if err != nil {
			return apperror.Wrap(apperror.KindNotFound, "worker: user not found for probe", err)
		}

		input := monitorModel.ProbeInput{
			ApplicationID:      app.ID,
			CurrentStatus:      string(app.Status),
			ApplicationURL:     app.ApplicationURL,
			RecipientEmail:     app.RecipientEmail,
			ThreadID:           app.EmailThreadID,
			AppliedDate:        app.AppliedAt,
			IsAutoApply:        app.Source == appModel.SourceAutoApply,
			LastOutboundSentAt: app.LastOutboundSentAt,
		}

		result, err := monitor.Probe(ctx, user, input)
		if err != nil {
			return err
		}
		log.Info("worker: monitor probe completed",
			zap.String("application_id", app.ID),
			zap.Int("signals", result.SignalsGathered),
			zap.String("new_status", result.NewStatus),
		)
		return nil
	}
}

func verificationCheckHandler(apps *appRepo.ApplicationRepository, users *userRepo.UserRepository, monitor *monitorService.MonitorService, log *logger.Logger) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		var payload verificationCheckJob
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return apperror.Wrap(apperror.KindInvariant, "worker: malformed verification_check payload", err)
		}

		app, err := apps.GetByIDAny(ctx, payload.ApplicationID)
		if err != nil {
			return apperror.Wrap(apperror.KindNotFound, "worker: application not found for verification", err)
		}
		if app.Status != appModel.StatusPendingVerification {
			return nil // resolved by another round already
		}
		user, err := users.GetByID(ctx, app.UserID)
		if err != nil {
			return apperror.Wrap(apperror.KindNotFound, "worker: user not found for verification", err)
		}
		if !user.HasMailbox() {
			return nil
		}

		result, err := monitor.Verify(ctx, user, monitorModel.VerifyInput{
			ApplicationID:      app.ID,
			RecipientEmail:     app.RecipientEmail,
			VerificationDomain: app.VerificationPortalDomain,
			SentAt:             app.UpdatedAt,
		})
		if err != nil {
			return err
		}
		log.Info("worker: verification sweep checked application",
			zap.String("application_id", app.ID),
			zap.Bool("verified", result.Verified),
		)
		return nil
	}
}

func runMonitorTick(ctx context.Context, apps *appRepo.ApplicationRepository, q *queue.Queue, log *logger.Logger) {
	ticker := time.NewTicker(monitorTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			monitorTick(ctx, apps, q, log)
		}
	}
}

func monitorTick(ctx context.Context, apps *appRepo.ApplicationRepository, q *queue.Queue, log *logger.Logger) {
	candidates, err := apps.ListMonitorable(ctx)
	if err != nil {
		log.Error("worker: monitor_tick failed to list monitorable applications", zap.Error(err))
		return
	}

	perUser := map[string]int{}
	enqueued := 0
	for _, app := range candidates {
		if perUser[app.UserID] >= maxProbesPerUserPerTick {
			continue
		}
		payload := monitorProbeJob{ApplicationID: app.ID}
		// One key per application per hour, so Enqueue's 24h dedup window
		// does not hold an application to one probe a day.
		key := "monitor_probe:" + app.ID + ":" + time.Now().UTC().Truncate(time.Hour).Format(time.RFC3339)
		if err := q.Enqueue(ctx, topicMonitorProbe, key, payload); err != nil {
			log.Warn("worker: failed to enqueue monitor probe", zap.String("application_id", app.ID), zap.Error(err))
			continue
		}
		perUser[app.UserID]++
		enqueued++
	}
	log.Info("worker: monitor_tick enqueued probes", zap.Int("count", enqueued), zap.Int("candidates", len(candidates)))
}

func runVerificationSweep(ctx context.Context, apps *appRepo.ApplicationRepository, q *queue.Queue, log *logger.Logger) {
	ticker := time.NewTicker(verificationSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			verificationSweepTick(ctx, apps, q, log)
		}
	}
}

func verificationSweepTick(ctx context.Context, apps *appRepo.ApplicationRepository, q *queue.Queue, log *logger.Logger) {
	pending, err := apps.ListByStatus(ctx, string(appModel.StatusPendingVerification))
	if err != nil {
		log.Error("worker: verification_sweep failed to list pending_verification applications", zap.Error(err))
		return
	}

	enqueued := 0
	for _, app := range pending {
		if app.VerificationPortalDomain == "" {
			continue
		}
		payload := verificationCheckJob{ApplicationID: app.ID}
		key := "verification_check:" + app.ID + ":" + time.Now().UTC().Truncate(verificationSweepInterval).Format(time.RFC3339)
		if err := q.Enqueue(ctx, topicVerificationCheck, key, payload); err != nil {
			log.Warn("worker: failed to enqueue verification check", zap.String("application_id", app.ID), zap.Error(err))
			continue
		}
		enqueued++
	}
	log.Info("worker: verification_sweep enqueued checks", zap.Int("count", enqueued), zap.Int("pending", len(pending)))
}

func runUsageResetTick(ctx context.Context, quota *quotaService.QuotaService, log *logger.Logger) {
	ticker := time.NewTicker(usageResetInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reset, err := quota.ResetMonthly(ctx)
			if err != nil {
				log.Error("worker: usage_reset_tick failed", zap.Error(err))
				continue
			}
			log.Info("worker: usage_reset_tick completed", zap.Int("subscriptions_reset", reset))
		}
	}
}

func runJobExpiryTick(ctx context.Context, jobs *jobService.JobService, log *logger.Logger) {
	ticker := time.NewTicker(jobExpiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := jobs.ExpireStale(ctx, jobExpiryMaxAge)
			if err != nil {
				log.Error("worker: job_expiry_tick failed", zap.Error(err))
				continue
			}
			log.Info("worker: job_expiry_tick completed", zap.Int("jobs_expired", expired))
		}
	}
}
