// File: internal/notification/service.go
package notification

import (
	"context"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

// RecipientResolver finds who should receive location-wide notifications.
type RecipientResolver interface {
	Users(ctx context.Context, ids []uuid.UUID) ([]Recipient, error)
	WarehouseStaff(ctx context.Context, warehouseID uuid.UUID) ([]Recipient, error)
	BranchStaff(ctx context.Context, branchID uuid.UUID) ([]Recipient, error)
}

// Pusher delivers push notifications to device tokens. *firebase.FirebaseService implements it.
type Pusher interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error)
}

// Service manages in-app notifications and their push delivery.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	HasUnread(ctx context.Context, topic string, productID uuid.UUID) (bool, error)

	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, msg Message) error
	NotifyWarehouse(ctx context.Context, warehouseID uuid.UUID, msg Message) error
	NotifyBranch(ctx context.Context, branchID uuid.UUID, msg Message) error
}

type service struct {
	repo       Repository
	recipients RecipientResolver
	pusher     Pusher
	metrics    metrics.Recorder
	logger     *zap.Logger
}

// NewService creates a notification service. pusher may be nil, in which case
// only in-app notifications are stored.
func NewService(repo Repository, recipients RecipientResolver, pusher Pusher, rec metrics.Recorder, logger *zap.Logger) Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &service{repo: repo, recipients: recipients, pusher: pusher, metrics: rec, logger: logger}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, page, pageSize)
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, notificationID, userID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *service) HasUnread(ctx context.Context, topic string, productID uuid.UUID) (bool, error) {
	return s.repo.ExistsUnread(ctx, topic, productID)
}

func (s *service) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, msg Message) error {
	recipients, err := s.recipients.Users(ctx, dedupe(userIDs))
	if err != nil {
		return err
	}
	return s.deliver(ctx, recipients, msg)
}

func (s *service) NotifyWarehouse(ctx context.Context, warehouseID uuid.UUID, msg Message) error {
	recipients, err := s.recipients.WarehouseStaff(ctx, warehouseID)
	if err != nil {
		return err
	}
	return s.deliver(ctx, recipients, msg)
}

func (s *service) NotifyBranch(ctx context.Context, branchID uuid.UUID, msg Message) error {
	recipients, err := s.recipients.BranchStaff(ctx, branchID)
	if err != nil {
		return err
	}
	return s.deliver(ctx, recipients, msg)
}

// deliver stores one row per recipient and then attempts a push. Push
// failures are logged and counted, never returned.
func (s *service) deliver(ctx context.Context, recipients []Recipient, msg Message) error {
	if len(recipients) == 0 {
		return nil
	}
	if msg.Type == "" {
		msg.Type = TypeInfo
	}
	now := time.Now().UTC()
	rows := make([]Notification, 0, len(recipients))
	var tokens []string
	for _, r := range recipients {
		rows = append(rows, Notification{
			ID:        uuid.New(),
			UserID:    r.UserID,
			Title:     msg.Title,
			Message:   msg.Body,
			Type:      msg.Type,
			Topic:     msg.Topic,
			Link:      msg.Link,
			OrderID:   msg.OrderID,
			ProductID: msg.ProductID,
			RequestID: msg.RequestID,
			CreatedAt: now,
		})
		if r.DeviceToken != "" {
			tokens = append(tokens, r.DeviceToken)
		}
	}
	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		s.logger.Error("Failed to store notifications", zap.Error(err), zap.String("topic", msg.Topic))
		return err
	}
	s.push(ctx, tokens, msg)
	return nil
}

func (s *service) push(ctx context.Context, tokens []string, msg Message) {
	if s.pusher == nil || len(tokens) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	sent, err := s.pusher.SendMulticast(ctx, tokens, msg.Title, msg.Body, pushData(msg))
	for i := 0; i < len(tokens); i++ {
		s.metrics.RecordPushDelivery(i < sent)
	}
	if err != nil {
		s.logger.Warn("Push notification delivery failed", zap.Error(err), zap.Int("tokens", len(tokens)))
		return
	}
	s.logger.Debug("Push notifications sent", zap.Int("sent", sent), zap.Int("tokens", len(tokens)))
}

func pushData(msg Message) map[string]string {
	data := map[string]string{"type": string(msg.Type), "topic": msg.Topic}
	if msg.Link != nil {
		data["link"] = *msg.Link
	}
	if msg.OrderID != nil {
		data["order_id"] = msg.OrderID.String()
	}
	if msg.ProductID != nil {
		data["product_id"] = msg.ProductID.String()
	}
	if msg.RequestID != nil {
		data["request_id"] = msg.RequestID.String()
	}
	return data
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
