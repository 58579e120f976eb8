package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"go.uber.org/zap"
)

type StatsHandler struct {
	svc service.StatsService
	log *zap.Logger
}

func NewStatsHandler(svc service.StatsService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, log: log}
}

type StatsResponse struct {
	ActiveListings     int64   `json:"activeListings"`
	VerifiedBuyers     int64   `json:"verifiedBuyers"`
	RecentTransactions int64   `json:"recentTransactions"`
	TotalRevenue       float64 `json:"totalRevenue"`
}

func (h *StatsHandler) Get(c echo.Context) error {
	st, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, StatsResponse{
		ActiveListings:     st.ActiveListings,
		VerifiedBuyers:     st.VerifiedBuyers,
		RecentTransactions: st.RecentTransactions,
		TotalRevenue:       st.TotalRevenue,
	})
}
