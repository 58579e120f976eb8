package model

import "time"

const (
	NotificationNewOrder     = "new_order"
	NotificationOrderStatus  = "order_status"
	NotificationVerification = "verification"
)

type Notification struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	UserID        uint64     `gorm:"column:user_id;not null;index"`
	Type          string     `gorm:"column:type;size:64;not null"`
	Title         string     `gorm:"column:title;size:255"`
	Body          string     `gorm:"column:body;type:text"`
	TransactionID *uint64    `gorm:"column:transaction_id;index"`
	ProductID     *uint64    `gorm:"column:product_id"`
	ReadAt        *time.Time `gorm:"column:read_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
