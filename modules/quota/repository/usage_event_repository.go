package repository

import (
	"context"
	"errors"

	"github.com/andreypavlenko/jobber/modules/quota/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageEventRepository implements ports.UsageEventRepository.
type UsageEventRepository struct {
	pool *pgxpool.Pool
}

func NewUsageEventRepository(pool *pgxpool.Pool) *UsageEventRepository {
	return &UsageEventRepository{pool: pool}
}

func (r *UsageEventRepository) Append(ctx context.Context, event *model.UsageEvent) error {
	query := `
		INSERT INTO usage_events (id, user_id, event_type, quantity, billing_period_start, timestamp, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, query, event.ID, event.UserID, event.EventType, event.Quantity, event.BillingPeriodStart, event.Timestamp, event.IdempotencyKey)
	return err
}

func (r *UsageEventRepository) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM usage_events WHERE idempotency_key = $1)`, key).Scan(&exists)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	return exists, nil
}
