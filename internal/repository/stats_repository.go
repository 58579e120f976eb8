package repository

import (
	"context"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"gorm.io/gorm"
)

type StatsRepository interface {
	CountAvailableProducts(ctx context.Context) (int64, error)
	CountVerified(ctx context.Context, role model.Role) (int64, error)
	CountTransactionsSince(ctx context.Context, since time.Time) (int64, error)
	SumTotalPrice(ctx context.Context) (float64, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountAvailableProducts(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_available = ?", true).Count(&cnt).Error
	return cnt, err
}

func (r *statsRepository) CountVerified(ctx context.Context, role model.Role) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Verification{}).
		Joins("JOIN users ON users.id = verifications.user_id").
		Where("verifications.verified_status = ? AND users.role = ?", true, role).
		Count(&cnt).Error
	return cnt, err
}

func (r *statsRepository) CountTransactionsSince(ctx context.Context, since time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("transaction_date >= ?", since).Count(&cnt).Error
	return cnt, err
}

func (r *statsRepository) SumTotalPrice(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&total).Error
	return total, err
}
