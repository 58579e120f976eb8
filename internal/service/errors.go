package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotVerified        = fmt.Errorf("%w: not verified", ErrForbidden)
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrInsufficientStock  = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error is a domain error with a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError carries the stock left so the client can offer a corrected amount.
type InsufficientStockError struct {
	Available float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock. Only %s kg available.", FormatQuantity(e.Available))
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// FormatQuantity renders a stock amount without float noise, e.g. 10 or 2.5.
func FormatQuantity(q float64) string {
	return decimal.NewFromFloat(q).Round(3).String()
}
