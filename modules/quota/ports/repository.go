package ports

import (
	"context"
	"time"

	"github.com/andreypavlenko/jobber/modules/quota/model"
)

// SubscriptionRepository persists per-user plan enrollment and usage
// counters.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	Create(ctx context.Context, sub *model.Subscription) error
	// TryIncrement performs the conditional atomic update
	// "if current + qty <= limit then current += qty", returning whether
	// it applied. limit < 0 means unlimited (always applies).
	TryIncrement(ctx context.Context, userID string, event model.EventType, qty, limit int) (applied bool, current int, err error)
	// ListDueForReset returns subscriptions whose usage_reset_date has
	// passed, for C12's usage_reset_tick.
	ListDueForReset(ctx context.Context, asOf time.Time) ([]*model.Subscription, error)
	ResetUsage(ctx context.Context, subscriptionID string, newResetDate time.Time) error
}

// UsageEventRepository persists the append-only usage ledger.
type UsageEventRepository interface {
	Append(ctx context.Context, event *model.UsageEvent) error
	ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error)
}
