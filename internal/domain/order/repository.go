package order

import "context"

// Repository persists orders together with their line items. Insert writes
// the order and every item as one logical write; an order without its items
// must never be observable.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)

	// Delete removes the order and its items. It is an administrative purge:
	// decremented stock is intentionally not restored.
	Delete(ctx context.Context, id string) error
}
