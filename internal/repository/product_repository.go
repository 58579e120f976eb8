package repository

import (
	"context"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"gorm.io/gorm"
)

// ProductUpdate holds the owner-editable fields; nil leaves a column unchanged.
type ProductUpdate struct {
	ProductName  *string
	PricePerUnit *float64
	Description  *string
}

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint64) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error)
	ListAvailable(ctx context.Context) ([]model.Product, error)
	ListByFarmer(ctx context.Context, farmerID uint64) ([]model.Product, error)
	IDsByFarmer(ctx context.Context, farmerID uint64) ([]uint64, error)
	UpdateOwned(ctx context.Context, id, farmerID uint64, upd ProductUpdate) (*model.Product, error)
	DeleteOwned(ctx context.Context, id, farmerID uint64) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	out := make(map[uint64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *productRepository) ListAvailable(ctx context.Context) ([]model.Product, error) {
	var list []model.Product
	if err := r.db.WithContext(ctx).
		Where("is_available = ?", true).
		Order("date_listed DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepository) ListByFarmer(ctx context.Context, farmerID uint64) ([]model.Product, error) {
	var list []model.Product
	if err := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("date_listed DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepository) IDsByFarmer(ctx context.Context, farmerID uint64) ([]uint64, error) {
	var ids []uint64
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("farmer_id = ?", farmerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateOwned returns gorm.ErrRecordNotFound when the product is missing or
// belongs to another farmer.
func (r *productRepository) UpdateOwned(ctx context.Context, id, farmerID uint64, upd ProductUpdate) (*model.Product, error) {
	changes := map[string]interface{}{}
	if upd.ProductName != nil {
		changes["product_name"] = *upd.ProductName
	}
	if upd.PricePerUnit != nil {
		changes["price_per_unit"] = *upd.PricePerUnit
	}
	if upd.Description != nil {
		changes["description"] = *upd.Description
	}
	var p model.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND farmer_id = ?", id, farmerID).First(&p).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) DeleteOwned(ctx context.Context, id, farmerID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND farmer_id = ?", id, farmerID).
		Delete(&model.Product{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
