package repository

import (
	"context"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"gorm.io/gorm"
)

const (
	defaultInboxLimit = 20
	maxInboxLimit     = 50
)

// InboxQuery selects a page of one user's notifications.
type InboxQuery struct {
	UserID     uint64
	UnreadOnly bool
	Limit      int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// Inbox returns the newest notifications matching q and the user's total unread count.
	Inbox(ctx context.Context, q InboxQuery) ([]model.Notification, int64, error)
	// MarkRead stamps read_at on the user's unread notifications. With no ids it marks all of them.
	MarkRead(ctx context.Context, userID uint64, ids ...uint64) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) unread(ctx context.Context, userID uint64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID)
}

func (r *notificationRepository) Inbox(ctx context.Context, q InboxQuery) ([]model.Notification, int64, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}

	var items []model.Notification
	var stmt *gorm.DB
	if q.UnreadOnly {
		stmt = r.unread(ctx, q.UserID)
	} else {
		stmt = r.db.WithContext(ctx).Where("user_id = ?", q.UserID)
	}
	if err := stmt.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	var unread int64
	if err := r.unread(ctx, q.UserID).Count(&unread).Error; err != nil {
		return items, 0, err
	}
	return items, unread, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID uint64, ids ...uint64) (int64, error) {
	stmt := r.unread(ctx, userID)
	if len(ids) > 0 {
		stmt = stmt.Where("id IN ?", ids)
	}
	res := stmt.Update("read_at", r.db.NowFunc())
	return res.RowsAffected, res.Error
}
