package repository

import (
	"context"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	Purchase(ctx context.Context, buyerID, productID uint64, qty float64, at time.Time) (*model.Transaction, *model.Product, error)
	FindByID(ctx context.Context, id uint64) (*model.Transaction, error)
	ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Transaction, error)
	ListByProducts(ctx context.Context, productIDs []uint64) ([]model.Transaction, error)
	ListAll(ctx context.Context) ([]model.Transaction, error)
	UpdateStatusIf(ctx context.Context, id uint64, from, to model.TransactionStatus) (int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Purchase decrements stock and records the transaction in one database
// transaction. The product row is locked for the duration (a no-op on
// sqlite, which serializes writers) and the decrement is additionally
// guarded by the stock check, so concurrent buyers of the same product can
// never oversell it. If anything later fails the decrement is rolled back
// with the rest.
//
// Quantities are compared and stored at model.QuantityScale decimal places.
//
// Errors: gorm.ErrRecordNotFound, ErrProductUnavailable, *StockError.
func (r *transactionRepository) Purchase(ctx context.Context, buyerID, productID uint64, qty float64, at time.Time) (*model.Transaction, *model.Product, error) {
	qty = model.RoundQuantity(qty)
	var (
		product model.Product
		t       model.Transaction
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, productID, &product); err != nil {
			return err
		}
		if !product.IsAvailable {
			return ErrProductUnavailable
		}
		if !model.CoversQuantity(product.Quantity, qty) {
			return &StockError{Available: model.RoundQuantity(product.Quantity), Requested: qty}
		}

		res := tx.Model(&model.Product{}).
			Where("id = ? AND is_available = ? AND quantity >= ?", productID, true, qty-model.QuantityTolerance).
			Update("quantity", gorm.Expr("quantity - ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// the row changed under us; report what is there now
			if err := lockProduct(tx, productID, &product); err != nil {
				return err
			}
			if !product.IsAvailable {
				return ErrProductUnavailable
			}
			return &StockError{Available: model.RoundQuantity(product.Quantity), Requested: qty}
		}

		if err := lockProduct(tx, productID, &product); err != nil {
			return err
		}
		if err := settleStock(tx, &product); err != nil {
			return err
		}

		t = model.Transaction{
			BuyerID:             buyerID,
			ProductID:           productID,
			ProductNameSnapshot: product.ProductName,
			PriceSnapshot:       product.PricePerUnit,
			QuantityPurchased:   qty,
			TotalPrice:          model.LineTotal(qty, product.PricePerUnit),
			TransactionDate:     at,
			Status:              model.TransactionStatusPending,
		}
		return tx.Create(&t).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &t, &product, nil
}

func lockProduct(tx *gorm.DB, id uint64, p *model.Product) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(p, id).Error
}

// settleStock rounds the remaining quantity to model.QuantityScale and
// marks the product sold out once nothing is left.
func settleStock(tx *gorm.DB, p *model.Product) error {
	remaining := model.RoundQuantity(p.Quantity)
	if remaining <= 0 {
		if err := tx.Model(&model.Product{}).
			Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"quantity":     0,
				"is_available": false,
			}).Error; err != nil {
			return err
		}
		p.Quantity, p.IsAvailable = 0, false
		return nil
	}
	if remaining != p.Quantity {
		if err := tx.Model(&model.Product{}).
			Where("id = ?", p.ID).
			Update("quantity", remaining).Error; err != nil {
			return err
		}
		p.Quantity = remaining
	}
	return nil
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint64) (*model.Transaction, error) {
	var t model.Transaction
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Transaction, error) {
	var list []model.Transaction
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("transaction_date DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *transactionRepository) ListByProducts(ctx context.Context, productIDs []uint64) ([]model.Transaction, error) {
	if len(productIDs) == 0 {
		return []model.Transaction{}, nil
	}
	var list []model.Transaction
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("transaction_date DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *transactionRepository) ListAll(ctx context.Context) ([]model.Transaction, error) {
	var list []model.Transaction
	if err := r.db.WithContext(ctx).
		Order("transaction_date DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatusIf moves id from one status to another only if it is still in from.
func (r *transactionRepository) UpdateStatusIf(ctx context.Context, id uint64, from, to model.TransactionStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
