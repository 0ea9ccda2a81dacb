package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrLineIndexOutOfRange = errors.New("cart line index out of range")
	ErrNotFound            = errors.New("sale not found")
)

// InsufficientStockError is raised both by cart staging (against the
// product snapshot, advisory) and by the commit transaction (against
// committed stock, authoritative). Callers must treat the commit-time
// error as ground truth.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (id %d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

// IsInsufficientStock unwraps err into an InsufficientStockError.
func IsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	ok := errors.As(err, &ise)
	return ise, ok
}
