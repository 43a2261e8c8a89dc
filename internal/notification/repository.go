// File: internal/notification/repository.go
package notification

import (
	"context"
	"errors"
	"fmt"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateBatch(ctx context.Context, notifications []Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	ExistsUnread(ctx context.Context, topic string, productID uuid.UUID) (bool, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM notification repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// CreateBatch inserts notifications, joining the caller's transaction if any.
func (r *GORMRepository) CreateBatch(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := database.Conn(ctx, r.db).Create(&notifications).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// ListByUser retrieves a paginated list of notifications for a user, newest first.
func (r *GORMRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error) {
	query := database.Conn(ctx, r.db).Model(&Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting notifications for user %s failed: %w", userID, err)
	}
	pq := common.PaginationQuery{Page: page, PageSize: pageSize}

	var notifications []Notification
	err := query.Order("created_at DESC").Limit(pq.Limit()).Offset(pq.Offset()).Find(&notifications).Error
	if err != nil {
		return nil, nil, fmt.Errorf("fetching notifications for user %s failed: %w", userID, err)
	}
	return notifications, common.NewPagination(total, pq.Page, pq.PageSize), nil
}

func (r *GORMRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkAsRead marks a notification as read. Notifications of other users are reported as missing.
func (r *GORMRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	var n Notification
	err := database.Conn(ctx, r.db).Where("id = ? AND user_id = ?", notificationID, userID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound.WithDetails("Notification not found or not owned by user.")
		}
		return fmt.Errorf("failed to find notification %s: %w", notificationID, err)
	}
	if n.Read {
		return nil
	}
	return database.Conn(ctx, r.db).Model(&Notification{}).
		Where("id = ?", notificationID).
		Update("is_read", true).Error
}

// MarkAllAsRead marks all unread notifications for a user as read and returns how many changed.
func (r *GORMRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := database.Conn(ctx, r.db).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

// ExistsUnread reports whether anyone still has an unread notification of the
// topic about the product.
func (r *GORMRepository) ExistsUnread(ctx context.Context, topic string, productID uuid.UUID) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&Notification{}).
		Where("topic = ? AND product_id = ? AND is_read = ?", topic, productID, false).
		Limit(1).Count(&n).Error
	return n > 0, err
}
