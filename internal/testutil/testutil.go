// Package testutil builds throwaway in-memory databases and fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shinyyama/farmmarket-backend/internal/db"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, gdb *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	if err := gdb.WithContext(context.Background()).Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateVerifiedUser inserts a user together with an approved verification record.
func CreateVerifiedUser(t *testing.T, gdb *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()
	u := CreateUser(t, gdb, username, role)
	SetVerified(t, gdb, u.ID, true)
	return u
}

func SetVerified(t *testing.T, gdb *gorm.DB, userID uint64, status bool) {
	t.Helper()
	now := time.Now().UTC()
	v := model.Verification{UserID: userID}
	if err := gdb.Where("user_id = ?", userID).FirstOrCreate(&v).Error; err != nil {
		t.Fatalf("verification for %d: %v", userID, err)
	}
	var date interface{}
	if status {
		date = now
	}
	if err := gdb.Model(&v).Updates(map[string]interface{}{
		"verified_status":   status,
		"verification_date": date,
	}).Error; err != nil {
		t.Fatalf("set verification for %d: %v", userID, err)
	}
}

func CreateProduct(t *testing.T, gdb *gorm.DB, farmerID uint64, name string, qty, price float64) *model.Product {
	t.Helper()
	p := &model.Product{
		FarmerID:     farmerID,
		ProductName:  name,
		Quantity:     qty,
		PricePerUnit: price,
		DateListed:   time.Now().UTC(),
		IsAvailable:  true,
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

// Reload re-reads p from the database.
func Reload(t *testing.T, gdb *gorm.DB, p *model.Product) *model.Product {
	t.Helper()
	var out model.Product
	if err := gdb.First(&out, p.ID).Error; err != nil {
		t.Fatalf("reload product %d: %v", p.ID, err)
	}
	return &out
}

func Session(u *model.User) *session.Session {
	return session.New(*u)
}
