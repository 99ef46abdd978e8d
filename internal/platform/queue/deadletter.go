package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/andreypavlenko/jobber/internal/platform/logger"
	notificationsModel "github.com/andreypavlenko/jobber/modules/notifications/model"
)

// OpsNotifier is the narrow slice of C11 the dead-letter sink needs: raise
// an in_app alert against the fixed ops pseudo-user so a parked job shows
// up next to every other notification, instead of only in a log line.
type OpsNotifier interface {
	Notify(ctx context.Context, userID string, typ notificationsModel.NotificationType, title, message string, data map[string]any, channels []notificationsModel.Channel) (*notificationsModel.NotificationDTO, error)
}

// OpsUserID is the fixed pseudo-user dead-letter alerts are addressed to,
// matching spec.md §7's "no silent drop" by giving operators one inbox to
// watch regardless of which user's job failed.
const OpsUserID = "ops"

// PostgresDeadLetterSink persists exhausted jobs to a dedicated table with
// full context (spec.md §7), reports the failure to Sentry, and raises an
// in_app notification on the ops pseudo-user — C12's three independent
// "don't let this fail silently" backstops.
type PostgresDeadLetterSink struct {
	pool     *pgxpool.Pool
	notifier OpsNotifier
	log      *logger.Logger
}

// NewPostgresDeadLetterSink builds a sink. notifier may be nil; the park
// and the Sentry report still happen, only the in_app alert is skipped.
func NewPostgresDeadLetterSink(pool *pgxpool.Pool, notifier OpsNotifier, log *logger.Logger) *PostgresDeadLetterSink {
	return &PostgresDeadLetterSink{pool: pool, notifier: notifier, log: log}
}

func (s *PostgresDeadLetterSink) Park(ctx context.Context, job Job, lastErr error) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dead_letter_jobs (topic, idempotency_key, payload, attempt, error, parked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, job.Topic, job.IdempotencyKey, job.Payload, job.Attempt, lastErr.Error(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("queue: park dead letter: %w", err)
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("queue_topic", job.Topic)
		scope.SetExtra("idempotency_key", job.IdempotencyKey)
		scope.SetExtra("attempt", job.Attempt)
		sentry.CaptureException(fmt.Errorf("job dead-lettered on topic %q: %w", job.Topic, lastErr))
	})

	if s.notifier == nil {
		return nil
	}
	_, err = s.notifier.Notify(ctx, OpsUserID, notificationsModel.TypeOpsAlert,
		fmt.Sprintf("Job dead-lettered: %s", job.Topic),
		fmt.Sprintf("Topic %s exhausted its retries after %d attempts: %s", job.Topic, job.Attempt, lastErr.Error()),
		map[string]any{"topic": job.Topic, "idempotency_key": job.IdempotencyKey, "attempt": job.Attempt},
		[]notificationsModel.Channel{notificationsModel.ChannelInApp},
	)
	if err != nil {
		s.log.Warn("queue: failed to raise ops notification for dead-lettered job", zap.Error(err))
	}
	return nil
}

// parkedJob mirrors one row of dead_letter_jobs, as returned by List.
type parkedJob struct {
	Topic          string          `json:"topic"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	Attempt        int             `json:"attempt"`
	Error          string          `json:"error"`
	ParkedAt       time.Time       `json:"parked_at"`
}

// List returns up to limit dead-lettered jobs, most recent first.
func (s *PostgresDeadLetterSink) List(ctx context.Context, limit int) ([]parkedJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT topic, idempotency_key, payload, attempt, error, parked_at
		FROM dead_letter_jobs ORDER BY parked_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []parkedJob
	for rows.Next() {
		var p parkedJob
		if err := rows.Scan(&p.Topic, &p.IdempotencyKey, &p.Payload, &p.Attempt, &p.Error, &p.ParkedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
