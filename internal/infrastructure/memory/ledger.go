package memory

import (
	"context"
	"sync"

	"github.com/quickmart/ordercore/internal/domain/stock"
)

// Ledger keeps per-product quantities in memory. The check-and-mutate of
// every operation happens under one lock, which is what makes TryDecrement
// and SetAbsolute conditional rather than read-then-write.
type Ledger struct {
	mu         sync.RWMutex
	quantities map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{quantities: make(map[string]int)}
}

// SeedProduct registers a product with an initial quantity. Intended for
// tests and the demo wiring.
func (l *Ledger) SeedProduct(productID string, quantity int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quantities[productID] = quantity
}

func (l *Ledger) TryDecrement(ctx context.Context, productID string, amount int) (int, error) {
	_ = ctx
	if amount <= 0 {
		return 0, stock.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quantities[productID]
	if !ok {
		return 0, stock.ErrProductNotFound
	}
	if q < amount {
		return 0, &stock.InsufficientStockError{ProductID: productID, Requested: amount, Available: q}
	}
	q -= amount
	l.quantities[productID] = q
	return q, nil
}

func (l *Ledger) Increment(ctx context.Context, productID string, amount int) (int, error) {
	_ = ctx
	if amount <= 0 {
		return 0, stock.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quantities[productID]
	if !ok {
		return 0, stock.ErrProductNotFound
	}
	q += amount
	l.quantities[productID] = q
	return q, nil
}

func (l *Ledger) SetAbsolute(ctx context.Context, productID string, newQuantity, expectedQuantity int) error {
	_ = ctx
	if newQuantity < 0 {
		return stock.ErrNegativeQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quantities[productID]
	if !ok {
		return stock.ErrProductNotFound
	}
	if q != expectedQuantity {
		return stock.ErrStaleView
	}
	l.quantities[productID] = newQuantity
	return nil
}

func (l *Ledger) Quantity(ctx context.Context, productID string) (int, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	q, ok := l.quantities[productID]
	if !ok {
		return 0, stock.ErrProductNotFound
	}
	return q, nil
}

func (l *Ledger) snapshot() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := make(map[string]int, len(l.quantities))
	for k, v := range l.quantities {
		snap[k] = v
	}
	return snap
}

func (l *Ledger) restore(snap map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quantities = snap
}
