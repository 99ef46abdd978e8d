package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/andreypavlenko/jobber/modules/quota/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository implements ports.SubscriptionRepository.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, current_usage, usage_reset_date, billing_period_start, created_at, updated_at
		FROM subscriptions WHERE user_id = $1
	`
	sub := &model.Subscription{}
	var usageRaw []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &usageRaw, &sub.UsageResetDate, &sub.BillingPeriodStart, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSubscriptionNotFound
		}
		return nil, err
	}
	sub.CurrentUsage = map[model.EventType]int{}
	if len(usageRaw) > 0 {
		if err := json.Unmarshal(usageRaw, &sub.CurrentUsage); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_id, current_usage, usage_reset_date, billing_period_start, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	sub.ID = uuid.New().String()
	if sub.CurrentUsage == nil {
		sub.CurrentUsage = map[model.EventType]int{}
	}
	usage, err := json.Marshal(sub.CurrentUsage)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, sub.ID, sub.UserID, sub.PlanID, usage, sub.UsageResetDate, sub.BillingPeriodStart, sub.CreatedAt, sub.UpdatedAt)
	return err
}

// TryIncrement performs the conditional atomic "increment if under limit"
// update in one statement: the JSONB counter is read, compared and
// rewritten server-side so concurrent submissions for the same user never
// both succeed past the limit. An unlimited plan (limit < 0) always
// succeeds and still records the increment for reporting.
func (r *SubscriptionRepository) TryIncrement(ctx context.Context, userID string, event model.EventType, qty, limit int) (bool, int, error) {
	var query string
	if limit < 0 {
		query = `
			UPDATE subscriptions
			SET current_usage = jsonb_set(
				COALESCE(current_usage, '{}'::jsonb),
				ARRAY[$2::text],
				to_jsonb(COALESCE((current_usage->>$2)::int, 0) + $3::int)
			), updated_at = now()
			WHERE user_id = $1
			RETURNING (current_usage->>$2)::int
		`
	} else {
		query = `
			UPDATE subscriptions
			SET current_usage = jsonb_set(
				COALESCE(current_usage, '{}'::jsonb),
				ARRAY[$2::text],
				to_jsonb(COALESCE((current_usage->>$2)::int, 0) + $3::int)
			), updated_at = now()
			WHERE user_id = $1
			AND COALESCE((current_usage->>$2)::int, 0) + $3::int <= $4::int
			RETURNING (current_usage->>$2)::int
		`
	}

	var current int
	var row pgx.Row
	if limit < 0 {
		row = r.pool.QueryRow(ctx, query, userID, string(event), qty)
	} else {
		row = r.pool.QueryRow(ctx, query, userID, string(event), qty, limit)
	}

	err := row.Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the subscription doesn't exist, or the limit check failed.
			// Read current usage to report it to the caller.
			existing, getErr := r.GetByUserID(ctx, userID)
			if getErr != nil {
				return false, 0, getErr
			}
			return false, existing.CurrentUsage[event], nil
		}
		return false, 0, err
	}
	return true, current, nil
}

func (r *SubscriptionRepository) ListDueForReset(ctx context.Context, asOf time.Time) ([]*model.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, current_usage, usage_reset_date, billing_period_start, created_at, updated_at
		FROM subscriptions WHERE usage_reset_date <= $1
	`
	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		sub := &model.Subscription{}
		var usageRaw []byte
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &usageRaw, &sub.UsageResetDate, &sub.BillingPeriodStart, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		sub.CurrentUsage = map[model.EventType]int{}
		if len(usageRaw) > 0 {
			if err := json.Unmarshal(usageRaw, &sub.CurrentUsage); err != nil {
				return nil, err
			}
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) ResetUsage(ctx context.Context, subscriptionID string, newResetDate time.Time) error {
	query := `
		UPDATE subscriptions
		SET current_usage = '{}'::jsonb, usage_reset_date = $2, updated_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, subscriptionID, newResetDate)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrSubscriptionNotFound
	}
	return nil
}
