package model

import "time"

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleBuyer, RoleAdmin:
		return true
	}
	return false
}

// Transacting reports whether the role needs admin verification before it may list or buy.
func (r Role) Transacting() bool {
	return r == RoleFarmer || r == RoleBuyer
}

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:64;not null;uniqueIndex:uk_users_username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uk_users_email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null"`
	Role         Role      `gorm:"size:16;not null;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
