package model

import "time"

// Verification records an admin decision about a farmer or buyer. A user with
// no row has never been reviewed and is treated as not verified.
type Verification struct {
	ID               uint64     `gorm:"primaryKey;autoIncrement"`
	UserID           uint64     `gorm:"column:user_id;not null;uniqueIndex:uk_verifications_user"`
	VerifiedStatus   bool       `gorm:"column:verified_status;not null;default:false"`
	VerificationDate *time.Time `gorm:"column:verification_date"`
	VerifiedBy       *uint64    `gorm:"column:verified_by"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

func (Verification) TableName() string {
	return "verifications"
}
