package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/metrics"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"github.com/shinyyama/farmmarket-backend/internal/session"
	"gorm.io/gorm"
)

type PurchaseResult struct {
	Transaction    *model.Transaction
	RemainingStock float64
}

type UserSummary struct {
	ID       uint64
	Username string
	Email    string
}

// ProductSummary is the live product behind a transaction; nil once the product is deleted.
type ProductSummary struct {
	ID             uint64
	ProductName    string
	PricePerUnit   float64
	FarmerID       uint64
	FarmerUsername string
}

type TransactionView struct {
	Transaction model.Transaction
	Buyer       *UserSummary
	Product     *ProductSummary
}

type TransactionService interface {
	Purchase(ctx context.Context, actor *session.Session, productID uint64, qty float64) (*PurchaseResult, error)
	SetStatus(ctx context.Context, actor *session.Session, id uint64, status model.TransactionStatus) (*model.Transaction, error)
	List(ctx context.Context, actor *session.Session) ([]TransactionView, error)
}

type transactionService struct {
	repo         repository.TransactionRepository
	products     repository.ProductRepository
	users        repository.UserRepository
	verification VerificationService
	notify       NotificationService
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewTransactionService(
	repo repository.TransactionRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	verification VerificationService,
	notify NotificationService,
	m *metrics.Metrics,
) TransactionService {
	return &transactionService{
		repo:         repo,
		products:     products,
		users:        users,
		verification: verification,
		notify:       notify,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *transactionService) Purchase(ctx context.Context, actor *session.Session, productID uint64, qty float64) (*PurchaseResult, error) {
	res, err := s.purchase(ctx, actor, productID, qty)
	s.metrics.Purchase(purchaseResult(err))
	return res, err
}

func (s *transactionService) purchase(ctx context.Context, actor *session.Session, productID uint64, qty float64) (*PurchaseResult, error) {
	if productID == 0 || qty == 0 {
		return nil, newError(ErrInvalidInput, "productId and quantityPurchased are required")
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return nil, newError(ErrInvalidInput, "quantityPurchased must be a positive number")
	}
	if qty = model.RoundQuantity(qty); qty <= 0 {
		return nil, newError(ErrInvalidInput, "quantityPurchased must be a positive number")
	}
	if !actor.IsBuyer() {
		return nil, newError(ErrForbidden, "Only buyers can make purchases")
	}
	ok, err := s.verification.IsEligible(ctx, actor.UserID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrNotVerified, "Account not verified. You cannot make purchases until approved by an Admin.")
	}

	t, product, err := s.repo.Purchase(ctx, actor.UserID(), productID, qty, s.now())
	if err != nil {
		var stockErr *repository.StockError
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, repository.ErrProductUnavailable):
			return nil, newError(ErrNotFound, "Product not found or unavailable")
		case errors.As(err, &stockErr):
			return nil, &InsufficientStockError{Available: stockErr.Available, Requested: qty}
		default:
			return nil, err
		}
	}

	if s.notify != nil {
		s.notify.Notify(ctx, product.FarmerID, model.NotificationNewOrder,
			"New order",
			fmt.Sprintf("%s ordered %s kg of %s.", actor.User.Username, FormatQuantity(qty), t.ProductNameSnapshot),
			uint64Ptr(t.ID), uint64Ptr(product.ID))
	}
	return &PurchaseResult{Transaction: t, RemainingStock: product.Quantity}, nil
}

func purchaseResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrInvalidInput):
		return metrics.ResultInvalid
	case errors.Is(err, ErrNotVerified):
		return metrics.ResultNotVerified
	case errors.Is(err, ErrForbidden):
		return metrics.ResultForbidden
	case errors.Is(err, ErrNotFound):
		return metrics.ResultUnavailable
	case errors.Is(err, ErrInsufficientStock):
		return metrics.ResultInsufficientStock
	default:
		return metrics.ResultError
	}
}

// SetStatus lets an admin, or the farmer who owns the product, move a
// transaction along pending -> confirmed -> delivered, or cancel it before it
// is delivered. Buyers are always refused.
func (s *transactionService) SetStatus(ctx context.Context, actor *session.Session, id uint64, status model.TransactionStatus) (*model.Transaction, error) {
	if !actor.IsAdmin() && !actor.IsFarmer() {
		return nil, newError(ErrForbidden, "Not authorized")
	}
	if !status.Valid() {
		return nil, newError(ErrInvalidInput, "Invalid status")
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Transaction not found")
		}
		return nil, err
	}
	if actor.IsFarmer() {
		product, err := s.products.FindByID(ctx, t.ProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if product == nil || product.FarmerID != actor.UserID() {
			return nil, newError(ErrForbidden, "Not authorized")
		}
	}

	if t.Status == status {
		return t, nil
	}
	if !t.Status.CanTransitionTo(status) {
		return nil, newError(ErrInvalidTransition, "Cannot change status from %s to %s", t.Status, status)
	}
	n, err := s.repo.UpdateStatusIf(ctx, t.ID, t.Status, status)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if t, err = s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if n == 0 {
		// someone else changed it first
		if t.Status == status {
			return t, nil
		}
		return nil, newError(ErrInvalidTransition, "Cannot change status from %s to %s", t.Status, status)
	}

	s.metrics.StatusChange(string(status))
	if s.notify != nil {
		s.notify.Notify(ctx, t.BuyerID, model.NotificationOrderStatus,
			"Order "+string(status),
			fmt.Sprintf("Your order of %s moved from %s to %s.", t.ProductNameSnapshot, from, status),
			uint64Ptr(t.ID), uint64Ptr(t.ProductID))
	}
	return t, nil
}

// List returns transactions newest first: buyers see their purchases, farmers
// the sales of their own products, admins everything.
func (s *transactionService) List(ctx context.Context, actor *session.Session) ([]TransactionView, error) {
	var (
		list []model.Transaction
		err  error
	)
	switch actor.Role() {
	case model.RoleBuyer:
		list, err = s.repo.ListByBuyer(ctx, actor.UserID())
	case model.RoleFarmer:
		var ids []uint64
		ids, err = s.products.IDsByFarmer(ctx, actor.UserID())
		if err == nil {
			list, err = s.repo.ListByProducts(ctx, ids)
		}
	case model.RoleAdmin:
		list, err = s.repo.ListAll(ctx)
	default:
		return nil, newError(ErrForbidden, "Not authorized")
	}
	if err != nil {
		return nil, err
	}
	return s.join(ctx, list)
}

func (s *transactionService) join(ctx context.Context, list []model.Transaction) ([]TransactionView, error) {
	productIDs := make([]uint64, 0, len(list))
	userIDs := make([]uint64, 0, len(list))
	for _, t := range list {
		productIDs = append(productIDs, t.ProductID)
		userIDs = append(userIDs, t.BuyerID)
	}
	products, err := s.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		userIDs = append(userIDs, p.FarmerID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]TransactionView, 0, len(list))
	for _, t := range list {
		view := TransactionView{Transaction: t}
		if u, ok := users[t.BuyerID]; ok {
			view.Buyer = &UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
		}
		if p, ok := products[t.ProductID]; ok {
			view.Product = &ProductSummary{
				ID:             p.ID,
				ProductName:    p.ProductName,
				PricePerUnit:   p.PricePerUnit,
				FarmerID:       p.FarmerID,
				FarmerUsername: users[p.FarmerID].Username,
			}
		}
		out = append(out, view)
	}
	return out, nil
}
