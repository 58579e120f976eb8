package service

import (
	"context"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/reqctx"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"go.uber.org/zap"
)

type NotificationService interface {
	Notify(ctx context.Context, userID uint64, typ, title, body string, transactionID, productID *uint64)
	List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	// MarkRead marks the given notifications read, or all of them when ids is empty.
	MarkRead(ctx context.Context, userID uint64, ids []uint64) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, log *zap.Logger) NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &notificationService{repo: repo, log: log}
}

// Notify is best-effort; errors are logged and not returned.
func (s *notificationService) Notify(ctx context.Context, userID uint64, typ, title, body string, transactionID, productID *uint64) {
	if userID == 0 || typ == "" {
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	n := &model.Notification{
		UserID:        userID,
		Type:          typ,
		Title:         title,
		Body:          body,
		TransactionID: transactionID,
		ProductID:     productID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Warn("notification dropped",
			zap.String("request_id", reqctx.RequestID(ctx)),
			zap.Uint64("user_id", userID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}

func (s *notificationService) List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userID == 0 {
		return nil, 0, nil
	}
	return s.repo.Inbox(ctx, repository.InboxQuery{UserID: userID, UnreadOnly: unreadOnly, Limit: limit})
}

func (s *notificationService) MarkRead(ctx context.Context, userID uint64, ids []uint64) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	return s.repo.MarkRead(ctx, userID, ids...)
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

// withShortDeadline keeps a slow notification insert from holding up the response.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
