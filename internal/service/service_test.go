package service_test

import (
	"testing"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/auth"
	"github.com/shinyyama/farmmarket-backend/internal/metrics"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"github.com/shinyyama/farmmarket-backend/internal/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	metrics      *metrics.Metrics
	auth         service.AuthService
	verification service.VerificationService
	products     service.ProductService
	transactions service.TransactionService
	notify       service.NotificationService
	stats        service.StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	users := repository.NewUserRepository(gdb)
	productRepo := repository.NewProductRepository(gdb)
	m := metrics.New()

	notify := service.NewNotificationService(repository.NewNotificationRepository(gdb), nil)
	verification := service.NewVerificationService(repository.NewVerificationRepository(gdb), users, notify)
	return &fixture{
		db:      gdb,
		metrics: m,
		auth: service.NewAuthService(users, auth.BcryptHasher{Cost: 4},
			auth.NewTokenIssuer("0123456789abcdef", time.Hour), false),
		verification: verification,
		products:     service.NewProductService(productRepo, users, verification),
		transactions: service.NewTransactionService(repository.NewTransactionRepository(gdb), productRepo, users, verification, notify, m),
		notify:       notify,
		stats:        service.NewStatsService(repository.NewStatsRepository(gdb), 7*24*time.Hour),
	}
}
