package repository

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateUser      = errors.New("duplicate user")
	ErrProductUnavailable = errors.New("product unavailable")
)

// StockError reports a guarded decrement that found less stock than requested.
type StockError struct {
	Available float64
	Requested float64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %g, available %g", e.Requested, e.Available)
}

// isUniqueViolation matches the duplicate key errors of mysql, postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
