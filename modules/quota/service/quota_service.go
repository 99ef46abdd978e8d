package service

import (
	"context"
	"errors"
	"time"

	"github.com/andreypavlenko/jobber/internal/platform/logger"
	"github.com/andreypavlenko/jobber/modules/quota/model"
	"github.com/andreypavlenko/jobber/modules/quota/ports"
	"go.uber.org/zap"
)

type QuotaService struct {
	subs   ports.SubscriptionRepository
	events ports.UsageEventRepository
	log    *logger.Logger
}

func NewQuotaService(subs ports.SubscriptionRepository, events ports.UsageEventRepository, log *logger.Logger) *QuotaService {
	return &QuotaService{subs: subs, events: events, log: log}
}

// EnsureSubscription returns the user's subscription, creating a free-tier
// one on first access.
func (s *QuotaService) EnsureSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, model.ErrSubscriptionNotFound) {
		return nil, err
	}
	sub = model.NewSubscription(userID)
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Check reports whether qty more of event would fit under the user's plan
// limit without reserving it.
func (s *QuotaService) Check(ctx context.Context, userID string, event model.EventType, qty int) (allowed bool, current, limit int, err error) {
	sub, err := s.EnsureSubscription(ctx, userID)
	if err != nil {
		return false, 0, 0, err
	}
	limit = sub.Plan().LimitFor(event)
	current = sub.CurrentUsage[event]
	if model.IsUnlimited(limit) {
		return true, current, limit, nil
	}
	return current+qty <= limit, current, limit, nil
}

// Track reserves qty units of event for userID. The idempotencyKey makes a
// retried request a no-op: if an event with the same key was already
// appended, Track returns success without incrementing again. The
// increment itself is one atomic conditional UPDATE ... RETURNING; when it
// matches no row, TryIncrement reports it as not applied, which turns into
// ErrQuotaDenied here.
func (s *QuotaService) Track(ctx context.Context, userID string, event model.EventType, qty int, idempotencyKey string) error {
	if idempotencyKey != "" {
		seen, err := s.events.ExistsByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	sub, err := s.EnsureSubscription(ctx, userID)
	if err != nil {
		return err
	}
	limit := sub.Plan().LimitFor(event)

	applied, _, err := s.subs.TryIncrement(ctx, userID, event, qty, limit)
	if err != nil {
		return err
	}
	if !applied {
		return model.ErrQuotaDenied
	}

	usageEvent := &model.UsageEvent{
		UserID:             userID,
		EventType:          event,
		Quantity:           qty,
		BillingPeriodStart: sub.BillingPeriodStart,
		Timestamp:          time.Now().UTC(),
		IdempotencyKey:     idempotencyKey,
	}
	if err := s.events.Append(ctx, usageEvent); err != nil {
		s.log.Error("quota: failed to append usage event", zap.Error(err), zap.String("user_id", userID), zap.String("event_type", string(event)))
	}
	return nil
}

// ResetMonthly is C12's usage_reset_tick: every subscription whose
// usage_reset_date has passed gets its counters zeroed and the date
// pushed 30 days out, independent of billing interval.
func (s *QuotaService) ResetMonthly(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	due, err := s.subs.ListDueForReset(ctx, now)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, sub := range due {
		next := now.AddDate(0, 0, 30)
		if err := s.subs.ResetUsage(ctx, sub.ID, next); err != nil {
			s.log.Error("quota: failed to reset subscription usage", zap.Error(err), zap.String("subscription_id", sub.ID))
			continue
		}
		reset++
	}
	return reset, nil
}
