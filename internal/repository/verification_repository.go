package repository

import (
	"context"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationRepository interface {
	FindByUser(ctx context.Context, userID uint64) (*model.Verification, error)
	Upsert(ctx context.Context, userID uint64, status bool, adminID uint64, at time.Time) (*model.Verification, error)
	List(ctx context.Context) ([]model.Verification, error)
}

type verificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

// FindByUser returns gorm.ErrRecordNotFound when the user was never reviewed.
func (r *verificationRepository) FindByUser(ctx context.Context, userID uint64) (*model.Verification, error) {
	var v model.Verification
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// Upsert writes the admin decision; the unique user_id index keeps one row per user.
func (r *verificationRepository) Upsert(ctx context.Context, userID uint64, status bool, adminID uint64, at time.Time) (*model.Verification, error) {
	var (
		date    *time.Time
		dateVal interface{}
	)
	if status {
		date, dateVal = &at, at
	}
	v := &model.Verification{
		UserID:           userID,
		VerifiedStatus:   status,
		VerificationDate: date,
		VerifiedBy:       &adminID,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"verified_status":   status,
			"verification_date": dateVal,
			"verified_by":       adminID,
			"updated_at":        at,
		}),
	}).Create(v).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

func (r *verificationRepository) List(ctx context.Context) ([]model.Verification, error) {
	var list []model.Verification
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
