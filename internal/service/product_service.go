package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"github.com/shinyyama/farmmarket-backend/internal/session"
	"gorm.io/gorm"
)

type CreateProductInput struct {
	ProductName  string
	Quantity     float64
	PricePerUnit float64
	Description  string
}

type UpdateProductInput struct {
	ProductName  *string
	PricePerUnit *float64
	Description  *string
}

type ProductWithFarmer struct {
	Product        model.Product
	FarmerUsername string
}

type ProductService interface {
	Create(ctx context.Context, actor *session.Session, in CreateProductInput) (*model.Product, error)
	ListAvailable(ctx context.Context) ([]ProductWithFarmer, error)
	ListMine(ctx context.Context, actor *session.Session) ([]model.Product, error)
	Update(ctx context.Context, actor *session.Session, id uint64, in UpdateProductInput) (*model.Product, error)
	Delete(ctx context.Context, actor *session.Session, id uint64) error
}

type productService struct {
	repo         repository.ProductRepository
	users        repository.UserRepository
	verification VerificationService
	now          func() time.Time
}

func NewProductService(repo repository.ProductRepository, users repository.UserRepository, verification VerificationService) ProductService {
	return &productService{repo: repo, users: users, verification: verification, now: func() time.Time { return time.Now().UTC() }}
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func (s *productService) Create(ctx context.Context, actor *session.Session, in CreateProductInput) (*model.Product, error) {
	if !actor.IsFarmer() {
		return nil, newError(ErrForbidden, "Only farmers can post listings")
	}
	ok, err := s.verification.IsEligible(ctx, actor.UserID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrNotVerified, "Account not verified. You cannot post listings until approved by an Admin.")
	}

	name := strings.TrimSpace(in.ProductName)
	if name == "" || in.Quantity == 0 || in.PricePerUnit == 0 {
		return nil, newError(ErrInvalidInput, "Please provide all fields")
	}
	if len(name) > 120 {
		return nil, newError(ErrInvalidInput, "productName is too long")
	}
	if !positiveFinite(in.Quantity) {
		return nil, newError(ErrInvalidInput, "quantity must be a positive number")
	}
	if !positiveFinite(in.PricePerUnit) {
		return nil, newError(ErrInvalidInput, "pricePerUnit must be a positive number")
	}

	p := &model.Product{
		FarmerID:     actor.UserID(),
		ProductName:  name,
		Quantity:     in.Quantity,
		PricePerUnit: in.PricePerUnit,
		Description:  strings.TrimSpace(in.Description),
		DateListed:   s.now(),
		IsAvailable:  true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) ListAvailable(ctx context.Context) ([]ProductWithFarmer, error) {
	products, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.FarmerID)
	}
	farmers, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ProductWithFarmer, 0, len(products))
	for _, p := range products {
		out = append(out, ProductWithFarmer{Product: p, FarmerUsername: farmers[p.FarmerID].Username})
	}
	return out, nil
}

func (s *productService) ListMine(ctx context.Context, actor *session.Session) ([]model.Product, error) {
	if !actor.IsFarmer() {
		return nil, newError(ErrForbidden, "Only farmers have listings")
	}
	return s.repo.ListByFarmer(ctx, actor.UserID())
}

func (s *productService) Update(ctx context.Context, actor *session.Session, id uint64, in UpdateProductInput) (*model.Product, error) {
	if !actor.IsFarmer() {
		return nil, newError(ErrForbidden, "Only farmers can edit listings")
	}
	upd := repository.ProductUpdate{Description: in.Description}
	if in.ProductName != nil {
		name := strings.TrimSpace(*in.ProductName)
		if name == "" || len(name) > 120 {
			return nil, newError(ErrInvalidInput, "invalid productName")
		}
		upd.ProductName = &name
	}
	if in.PricePerUnit != nil {
		if !positiveFinite(*in.PricePerUnit) {
			return nil, newError(ErrInvalidInput, "pricePerUnit must be a positive number")
		}
		upd.PricePerUnit = in.PricePerUnit
	}
	p, err := s.repo.UpdateOwned(ctx, id, actor.UserID(), upd)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Product not found or unauthorized")
		}
		return nil, err
	}
	return p, nil
}

// Delete reports another farmer's product as not found so its existence is not confirmed.
func (s *productService) Delete(ctx context.Context, actor *session.Session, id uint64) error {
	if !actor.IsFarmer() {
		return newError(ErrForbidden, "Only farmers can delete listings")
	}
	n, err := s.repo.DeleteOwned(ctx, id, actor.UserID())
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(ErrNotFound, "Product not found or unauthorized")
	}
	return nil
}
