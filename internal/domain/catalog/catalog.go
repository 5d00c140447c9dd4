package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("catalog: product not found")

// Product is the catalog view of a sellable item. The available quantity is
// owned by the stock ledger and is deliberately absent here.
type Product struct {
	ID        string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
}

// Reader resolves catalog data for price verification. Read-only; catalog
// maintenance happens outside the order engine.
type Reader interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}
