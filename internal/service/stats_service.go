package service

import (
	"context"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"github.com/shopspring/decimal"
)

type Stats struct {
	ActiveListings     int64
	VerifiedBuyers     int64
	RecentTransactions int64
	TotalRevenue       float64
}

type StatsService interface {
	Get(ctx context.Context) (*Stats, error)
}

type statsService struct {
	repo   repository.StatsRepository
	window time.Duration
	now    func() time.Time
}

// NewStatsService counts transactions newer than window as recent.
func NewStatsService(repo repository.StatsRepository, window time.Duration) StatsService {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &statsService{repo: repo, window: window, now: func() time.Time { return time.Now().UTC() }}
}

func (s *statsService) Get(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.ActiveListings, err = s.repo.CountAvailableProducts(ctx); err != nil {
		return nil, err
	}
	if st.VerifiedBuyers, err = s.repo.CountVerified(ctx, model.RoleBuyer); err != nil {
		return nil, err
	}
	if st.RecentTransactions, err = s.repo.CountTransactionsSince(ctx, s.now().Add(-s.window)); err != nil {
		return nil, err
	}
	total, err := s.repo.SumTotalPrice(ctx)
	if err != nil {
		return nil, err
	}
	st.TotalRevenue = decimal.NewFromFloat(total).Round(2).InexactFloat64()
	return &st, nil
}
