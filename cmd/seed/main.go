package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/farmmarket-backend/internal/auth"
	"github.com/shinyyama/farmmarket-backend/internal/config"
	"github.com/shinyyama/farmmarket-backend/internal/db"
	"github.com/shinyyama/farmmarket-backend/internal/logger"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedProduct struct {
	Name        string
	Quantity    float64
	Price       float64
	Description string
}

var demoProducts = []seedProduct{
	{"Tomatoes", 120, 2.5, "Vine ripened, harvested this week."},
	{"Potatoes", 500, 0.8, "Washed, mixed sizes."},
	{"Carrots", 80, 1.2, "Sweet winter carrots."},
	{"Onions", 250, 0.9, "Dry storage onions."},
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run() error {
	_ = godotenv.Load()

	adminUser := flag.String("admin-username", env("ADMIN_USERNAME", "admin"), "admin username")
	adminEmail := flag.String("admin-email", env("ADMIN_EMAIL", ""), "admin email")
	adminPassword := flag.String("admin-password", env("ADMIN_PASSWORD", ""), "admin password")
	demo := flag.Bool("demo", false, "also create a verified farmer, a verified buyer and sample products")
	flag.Parse()

	*adminEmail = strings.ToLower(strings.TrimSpace(*adminEmail))
	if *adminEmail == "" || *adminPassword == "" {
		return errors.New("admin email and password are required (ADMIN_EMAIL / ADMIN_PASSWORD)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	zl, err := logger.Init(cfg.LogLevel, true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(gdb)
	hasher := auth.BcryptHasher{}

	admin, err := ensureUser(ctx, users, hasher, *adminUser, *adminEmail, *adminPassword, model.RoleAdmin)
	if err != nil {
		return err
	}
	zl.Info("admin ready", zap.Uint64("id", admin.ID), zap.String("email", admin.Email))

	if !*demo {
		return nil
	}

	verifications := repository.NewVerificationRepository(gdb)
	products := repository.NewProductRepository(gdb)
	now := time.Now().UTC()

	farmer, err := ensureUser(ctx, users, hasher, "demo-farmer", "farmer@example.com", *adminPassword, model.RoleFarmer)
	if err != nil {
		return err
	}
	buyer, err := ensureUser(ctx, users, hasher, "demo-buyer", "buyer@example.com", *adminPassword, model.RoleBuyer)
	if err != nil {
		return err
	}
	for _, u := range []*model.User{farmer, buyer} {
		if _, err := verifications.Upsert(ctx, u.ID, true, admin.ID, now); err != nil {
			return fmt.Errorf("verify %s: %w", u.Username, err)
		}
	}

	existing, err := products.ListByFarmer(ctx, farmer.ID)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		zl.Info("demo products already exist; skipping", zap.Int("count", len(existing)))
		return nil
	}
	for _, sp := range demoProducts {
		p := &model.Product{
			FarmerID:     farmer.ID,
			ProductName:  sp.Name,
			Quantity:     sp.Quantity,
			PricePerUnit: sp.Price,
			Description:  sp.Description,
			DateListed:   now,
			IsAvailable:  true,
		}
		if err := products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %s: %w", sp.Name, err)
		}
	}
	zl.Info("demo data seeded", zap.Int("products", len(demoProducts)))
	return nil
}

// ensureUser returns the user with email, creating it when absent.
func ensureUser(ctx context.Context, users repository.UserRepository, hasher auth.PasswordHasher, username, email, password string, role model.Role) (*model.User, error) {
	u, err := users.FindByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find %s: %w", email, err)
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u = &model.User{Username: username, Email: email, PasswordHash: hash, Role: role}
	if err := users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create %s: %w", email, err)
	}
	return u, nil
}
