package checkout

import (
	"errors"
	"fmt"
)

// ErrEmptyCart means the buyer tried to check out with no cart lines.
var ErrEmptyCart = errors.New("cart is empty")

// ProductUnavailableError means a cart line references a product that is not
// currently purchasable (unpublished or deleted).
type ProductUnavailableError struct {
	ProductID uint
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("product %q is not available for purchase", e.Name)
	}
	return fmt.Sprintf("product %d is not available for purchase", e.ProductID)
}

// InsufficientStockError means a cart line asks for more units than are in
// stock, either at validation time or when the conditional decrement lost a
// race to a concurrent checkout.
type InsufficientStockError struct {
	ProductID uint
	Name      string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (requested %d)", e.Name, e.Requested)
}

// PaymentSessionError means the local reservation succeeded but the external
// payment session could not be established. Compensation has already run by
// the time the caller sees this; the condition is retryable.
type PaymentSessionError struct {
	Err error
}

func (e *PaymentSessionError) Error() string {
	return "payment session could not be created: " + e.Err.Error()
}

func (e *PaymentSessionError) Unwrap() error { return e.Err }
