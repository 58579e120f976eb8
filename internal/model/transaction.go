package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusDelivered TransactionStatus = "delivered"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

var transitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:   {TransactionStatusConfirmed, TransactionStatusCancelled},
	TransactionStatusConfirmed: {TransactionStatusDelivered, TransactionStatusCancelled},
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusConfirmed, TransactionStatusDelivered, TransactionStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusDelivered || s == TransactionStatusCancelled
}

// CanTransitionTo reports whether next is a legal successor of s. Staying in
// the same state is not a transition and returns false.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transaction is an immutable purchase record; only Status changes after creation.
// The snapshot columns keep history readable after the product is edited or deleted.
type Transaction struct {
	ID                  uint64            `gorm:"primaryKey;autoIncrement"`
	BuyerID             uint64            `gorm:"column:buyer_id;not null;index"`
	ProductID           uint64            `gorm:"column:product_id;not null;index"`
	ProductNameSnapshot string            `gorm:"column:product_name_snapshot;size:120;not null"`
	PriceSnapshot       float64           `gorm:"column:price_snapshot;not null"`
	QuantityPurchased   float64           `gorm:"column:quantity_purchased;not null"`
	TotalPrice          float64           `gorm:"column:total_price;not null"`
	TransactionDate     time.Time         `gorm:"column:transaction_date;not null;index"`
	Status              TransactionStatus `gorm:"column:status;size:16;not null;default:pending"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// LineTotal multiplies quantity by unit price in decimal so that values like
// 3 x 0.1 come out as 0.3.
func LineTotal(quantity, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).InexactFloat64()
}

// QuantityScale is the number of decimal places stock and purchase
// quantities are kept to.
const QuantityScale = 6

// QuantityTolerance is half a unit at QuantityScale. A stored quantity within
// it of a value rounds to that value.
const QuantityTolerance = 0.5e-6

// RoundQuantity rounds q to QuantityScale decimal places.
func RoundQuantity(q float64) float64 {
	return decimal.NewFromFloat(q).Round(QuantityScale).InexactFloat64()
}

// CoversQuantity reports whether stock holds at least want once both are
// rounded to QuantityScale.
func CoversQuantity(stock, want float64) bool {
	s := decimal.NewFromFloat(stock).Round(QuantityScale)
	return s.GreaterThanOrEqual(decimal.NewFromFloat(want).Round(QuantityScale))
}
