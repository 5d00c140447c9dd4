package stock

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("stock: product not found")
	ErrInvalidAmount     = errors.New("stock: amount must be greater than zero")
	ErrNegativeQuantity  = errors.New("stock: quantity must be zero or greater")
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	ErrStaleView         = errors.New("stock: quantity changed since it was read")
)

// InsufficientStockError reports a failed decrement with enough detail for the
// caller to let the user adjust the requested quantity.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StaleViewError reports an optimistic-concurrency conflict on a clerk
// adjustment, carrying the quantity currently stored so the caller can
// refetch and retry.
type StaleViewError struct {
	ProductID       string
	CurrentQuantity int
}

func (e *StaleViewError) Error() string {
	return fmt.Sprintf("stock: stale view of product %s: current quantity is %d",
		e.ProductID, e.CurrentQuantity)
}

func (e *StaleViewError) Is(target error) bool { return target == ErrStaleView }

// Ledger is the single authority over per-product available quantity.
// Implementations must apply TryDecrement and SetAbsolute as indivisible
// conditional operations, never as read-then-write pairs.
type Ledger interface {
	// TryDecrement reduces the quantity by amount only if the result stays
	// non-negative, returning the new quantity. Fails with
	// *InsufficientStockError without any side effect otherwise.
	TryDecrement(ctx context.Context, productID string, amount int) (int, error)

	// Increment raises the quantity by amount with no upper bound.
	Increment(ctx context.Context, productID string, amount int) (int, error)

	// SetAbsolute overwrites the quantity only while the stored value still
	// equals expectedQuantity. Fails with ErrStaleView when a concurrent
	// writer got there first.
	SetAbsolute(ctx context.Context, productID string, newQuantity, expectedQuantity int) error

	// Quantity reads the current available quantity.
	Quantity(ctx context.Context, productID string) (int, error)
}
