package model

import "time"

type Product struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	FarmerID     uint64    `gorm:"column:farmer_id;not null;index"`
	ProductName  string    `gorm:"column:product_name;size:120;not null"`
	Quantity     float64   `gorm:"column:quantity;not null;default:0"`
	PricePerUnit float64   `gorm:"column:price_per_unit;not null"`
	Description  string    `gorm:"type:text"`
	DateListed   time.Time `gorm:"column:date_listed;not null;index"`
	IsAvailable  bool      `gorm:"column:is_available;not null;default:true;index"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
