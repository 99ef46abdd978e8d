package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andreypavlenko/jobber/internal/platform/logger"
	"github.com/andreypavlenko/jobber/internal/platform/notify"
	"github.com/andreypavlenko/jobber/modules/notifications/model"
	"github.com/andreypavlenko/jobber/modules/notifications/ports"
	usersModel "github.com/andreypavlenko/jobber/modules/users/model"
	usersPorts "github.com/andreypavlenko/jobber/modules/users/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NotificationService persists a notification and fans it out to its
// requested channels concurrently.
type NotificationService struct {
	repo      ports.NotificationRepository
	users     usersPorts.UserRepository
	emailGate notify.Gateway
	log       *logger.Logger
}

func NewNotificationService(repo ports.NotificationRepository, users usersPorts.UserRepository, emailGate notify.Gateway, log *logger.Logger) *NotificationService {
	return &NotificationService{repo: repo, users: users, emailGate: emailGate, log: log}
}

// Notify persists the Notification document and fans out sends over the
// requested channels concurrently (spec §4.11), stamping sent_at once every
// channel has resolved. in_app always succeeds (it is just the row already
// persisted); email is skipped when the user has no connected address or
// has disabled that notification type.
func (s *NotificationService) Notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, data map[string]any, channels []model.Channel) (*model.NotificationDTO, error) {
	notification := model.NewNotification(userID, typ, title, message, data, channels)
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.log.Error("notifications: failed to load user for fan-out", zap.Error(err), zap.String("user_id", userID))
		return notification.ToDTO(), nil
	}

	deliveries := make([]model.Delivery, len(channels))
	group, gctx := errgroup.WithContext(ctx)
	for i, channel := range channels {
		i, channel := i, channel
		group.Go(func() error {
			deliveries[i] = s.sendChannel(gctx, user, notification, channel)
			return nil
		})
	}
	_ = group.Wait()

	notification.Deliveries = deliveries
	now := time.Now().UTC()
	notification.SentAt = &now

	if err := s.repo.MarkDeliveries(ctx, notification.ID, deliveries, notification.SentAt); err != nil {
		s.log.Error("notifications: failed to persist delivery outcomes", zap.Error(err), zap.String("notification_id", notification.ID))
	}

	return notification.ToDTO(), nil
}

func (s *NotificationService) sendChannel(ctx context.Context, user *usersModel.User, notification *model.Notification, channel model.Channel) model.Delivery {
	switch channel {
	case model.ChannelInApp:
		return model.Delivery{Channel: channel, Status: model.DeliverySent}
	case model.ChannelEmail:
		if s.emailGate == nil || !user.NotificationPrefs.AllowsEmail(string(notification.Type)) || user.Email == "" {
			return model.Delivery{Channel: channel, Status: model.DeliverySkipped}
		}
		if err := s.emailGate.Send(ctx, user.Email, notification.Title, notification.Message); err != nil {
			s.log.Error("notifications: email channel send failed", zap.Error(err), zap.String("user_id", user.ID))
			return model.Delivery{Channel: channel, Status: model.DeliveryFailed, Error: err.Error()}
		}
		return model.Delivery{Channel: channel, Status: model.DeliverySent}
	default:
		return model.Delivery{Channel: channel, Status: model.DeliveryFailed, Error: fmt.Sprintf("unknown channel %q", channel)}
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, opts *ports.ListOptions) ([]*model.NotificationDTO, int, error) {
	notifications, total, err := s.repo.List(ctx, userID, opts)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*model.NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = n.ToDTO()
	}
	return dtos, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}
