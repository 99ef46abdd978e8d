// Package queue is a small Redis-backed typed job queue: named topics,
// per-topic handlers with bounded retries and exponential backoff, and
// idempotency keys so a crash between "task accepted" and "task run"
// never loses or duplicates work. It backs C12 (Background Job Runtime);
// the periodic cron-style jobs (monitor_tick, verification_sweep, ...)
// enqueue onto it from cmd/worker's tickers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andreypavlenko/jobber/internal/platform/apperror"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
)

// Job is one unit of queued work.
type Job struct {
	Topic          string
	IdempotencyKey string
	Payload        json.RawMessage
	Attempt        int
}

// Handler processes one job. A non-nil error that is NOT apperror
// KindExternalUnavailable is treated as permanent (no retry).
type Handler func(ctx context.Context, job Job) error

// Options configure retry behavior for a topic.
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DeadLetterSink records jobs that exhausted their retries.
type DeadLetterSink interface {
	Park(ctx context.Context, job Job, lastErr error) error
}

// Queue is the Redis-backed dispatcher.
type Queue struct {
	rdb       *redis.Client
	log       *logger.Logger
	deadLetter DeadLetterSink
	handlers  map[string]registration
}

type registration struct {
	handler Handler
	opts    Options
}

// New builds a Queue.
func New(rdb *redis.Client, log *logger.Logger, deadLetter DeadLetterSink) *Queue {
	return &Queue{
		rdb:        rdb,
		log:        log,
		deadLetter: deadLetter,
		handlers:   make(map[string]registration),
	}
}

// Register binds a handler to a topic.
func (q *Queue) Register(topic string, handler Handler, opts Options) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 2 * time.Second
	}
	q.handlers[topic] = registration{handler: handler, opts: opts}
}

func listKey(topic string) string { return "jobber:queue:" + topic }
func seenKey(topic string) string { return "jobber:queue:" + topic + ":seen" }

// Enqueue pushes a job onto its topic's list, unless a job with the same
// idempotency key was already enqueued within the dedup window.
func (q *Queue) Enqueue(ctx context.Context, topic, idempotencyKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperror.Wrap(apperror.KindInvariant, "queue: failed to marshal payload", err)
	}

	if idempotencyKey != "" {
		added, err := q.rdb.SetNX(ctx, seenKey(topic)+":"+idempotencyKey, 1, 24*time.Hour).Result()
		if err != nil {
			return apperror.Wrap(apperror.KindExternalUnavailable, "queue: dedup check failed", err)
		}
		if !added {
			return nil // already enqueued; not an error
		}
	}

	job := Job{Topic: topic, IdempotencyKey: idempotencyKey, Payload: raw}
	encoded, err := json.Marshal(job)
	if err != nil {
		return apperror.Wrap(apperror.KindInvariant, "queue: failed to marshal job", err)
	}
	if err := q.rdb.LPush(ctx, listKey(topic), encoded).Err(); err != nil {
		return apperror.Wrap(apperror.KindExternalUnavailable, "queue: enqueue failed", err)
	}
	return nil
}

// Run drains every registered topic until ctx is cancelled. Each topic is
// polled in its own goroutine with a short blocking pop so shutdown is
// prompt.
func (q *Queue) Run(ctx context.Context) {
	for topic, reg := range q.handlers {
		go q.runTopic(ctx, topic, reg)
	}
	<-ctx.Done()
}

func (q *Queue) runTopic(ctx context.Context, topic string, reg registration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := q.rdb.BRPop(ctx, 5*time.Second, listKey(topic)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Warn("queue: pop failed", zap.String("topic", topic), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			q.log.Error("queue: malformed job payload, dropping", zap.String("topic", topic), zap.Error(err))
			continue
		}

		q.process(ctx, job, reg)
	}
}

func (q *Queue) process(ctx context.Context, job Job, reg registration) {
	err := reg.handler(ctx, job)
	if err == nil {
		return
	}

	job.Attempt++
	retryable := apperror.Is(err, apperror.KindExternalUnavailable)

	if retryable && job.Attempt < reg.opts.MaxAttempts {
		delay := time.Duration(float64(reg.opts.BaseBackoff) * math.Pow(2, float64(job.Attempt-1)))
		q.log.Warn("queue: job failed, scheduling retry",
			zap.String("topic", job.Topic), zap.Int("attempt", job.Attempt), zap.Duration("delay", delay), zap.Error(err))
		go q.scheduleRetry(ctx, job, delay)
		return
	}

	q.log.Error("queue: job exhausted retries, dead-lettering",
		zap.String("topic", job.Topic), zap.String("idempotency_key", job.IdempotencyKey), zap.Error(err))
	if q.deadLetter != nil {
		if dlErr := q.deadLetter.Park(ctx, job, err); dlErr != nil {
			q.log.Error("queue: failed to park dead-lettered job", zap.Error(dlErr))
		}
	}
}

func (q *Queue) scheduleRetry(ctx context.Context, job Job, delay time.Duration) {
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := q.rdb.LPush(ctx, listKey(job.Topic), encoded).Err(); err != nil {
		q.log.Error("queue: failed to reschedule job", zap.Error(err))
	}
}

// String is a small debug helper for logging job identity.
func (j Job) String() string {
	return fmt.Sprintf("%s[%s]@%d", j.Topic, j.IdempotencyKey, j.Attempt)
}
