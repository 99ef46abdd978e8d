package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/andreypavlenko/jobber/modules/notifications/model"
	"github.com/andreypavlenko/jobber/modules/notifications/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository implements ports.NotificationRepository.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, data, channels, deliveries, read, created_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	n.ID = uuid.New().String()

	data, channels, deliveries, err := encodeNotificationJSON(n)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, data, channels, deliveries, n.Read, n.CreatedAt, n.SentAt)
	return err
}

func (r *NotificationRepository) GetByID(ctx context.Context, userID, notificationID string) (*model.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, data, channels, deliveries, read, created_at, sent_at
		FROM notifications WHERE id = $1 AND user_id = $2
	`
	return r.scanRow(r.pool.QueryRow(ctx, query, notificationID, userID))
}

func (r *NotificationRepository) scanRow(row pgx.Row) (*model.Notification, error) {
	n := &model.Notification{}
	var dataRaw, channelsRaw, deliveriesRaw []byte
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &dataRaw, &channelsRaw, &deliveriesRaw, &n.Read, &n.CreatedAt, &n.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotificationNotFound
		}
		return nil, err
	}
	if err := decodeNotificationJSON(n, dataRaw, channelsRaw, deliveriesRaw); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NotificationRepository) List(ctx context.Context, userID string, opts *ports.ListOptions) ([]*model.Notification, int, error) {
	limit, offset := 20, 0
	unreadOnly := false
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		offset = opts.Offset
		unreadOnly = opts.UnreadOnly
	}

	where := "WHERE user_id = $1"
	if unreadOnly {
		where += " AND read = false"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM notifications " + where
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, type, title, message, data, channels, deliveries, read, created_at, sent_at
		FROM notifications ` + where + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		var dataRaw, channelsRaw, deliveriesRaw []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &dataRaw, &channelsRaw, &deliveriesRaw, &n.Read, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, 0, err
		}
		if err := decodeNotificationJSON(n, dataRaw, channelsRaw, deliveriesRaw); err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

func (r *NotificationRepository) MarkDeliveries(ctx context.Context, notificationID string, deliveries []model.Delivery, sentAt *time.Time) error {
	raw, err := json.Marshal(deliveries)
	if err != nil {
		return err
	}
	query := `UPDATE notifications SET deliveries = $2, sent_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, notificationID, raw, sentAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}

func encodeNotificationJSON(n *model.Notification) (data, channels, deliveries []byte, err error) {
	data, err = json.Marshal(n.Data)
	if err != nil {
		return nil, nil, nil, err
	}
	channels, err = json.Marshal(n.Channels)
	if err != nil {
		return nil, nil, nil, err
	}
	if n.Deliveries == nil {
		n.Deliveries = []model.Delivery{}
	}
	deliveries, err = json.Marshal(n.Deliveries)
	if err != nil {
		return nil, nil, nil, err
	}
	return data, channels, deliveries, nil
}

func decodeNotificationJSON(n *model.Notification, dataRaw, channelsRaw, deliveriesRaw []byte) error {
	n.Data = map[string]any{}
	if len(dataRaw) > 0 && string(dataRaw) != "null" {
		if err := json.Unmarshal(dataRaw, &n.Data); err != nil {
			return err
		}
	}
	if len(channelsRaw) > 0 {
		if err := json.Unmarshal(channelsRaw, &n.Channels); err != nil {
			return err
		}
	}
	if len(deliveriesRaw) > 0 {
		if err := json.Unmarshal(deliveriesRaw, &n.Deliveries); err != nil {
			return err
		}
	}
	return nil
}
