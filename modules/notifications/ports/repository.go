package ports

import (
	"context"
	"time"

	"github.com/andreypavlenko/jobber/modules/notifications/model"
)

// ListOptions defines options for listing a user's notifications.
type ListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationRepository defines the interface for notification data access.
type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	GetByID(ctx context.Context, userID, notificationID string) (*model.Notification, error)
	List(ctx context.Context, userID string, opts *ListOptions) ([]*model.Notification, int, error)
	MarkDeliveries(ctx context.Context, notificationID string, deliveries []model.Delivery, sentAt *time.Time) error
	MarkRead(ctx context.Context, userID, notificationID string) error
}
