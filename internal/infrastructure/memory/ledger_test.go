package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmart/ordercore/internal/domain/stock"
)

func TestLedgerTryDecrement(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 10)

	after, err := l.TryDecrement(ctx, "sku-a", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, after)

	q, err := l.Quantity(ctx, "sku-a")
	require.NoError(t, err)
	assert.Equal(t, 7, q)
}

func TestLedgerTryDecrementInsufficient(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 2)

	_, err := l.TryDecrement(ctx, "sku-a", 3)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	var ise *stock.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "sku-a", ise.ProductID)
	assert.Equal(t, 3, ise.Requested)
	assert.Equal(t, 2, ise.Available)

	// A failed decrement leaves the quantity untouched.
	q, err := l.Quantity(ctx, "sku-a")
	require.NoError(t, err)
	assert.Equal(t, 2, q)
}

func TestLedgerTryDecrementErrors(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 5)

	_, err := l.TryDecrement(ctx, "sku-a", 0)
	assert.ErrorIs(t, err, stock.ErrInvalidAmount)

	_, err = l.TryDecrement(ctx, "sku-a", -1)
	assert.ErrorIs(t, err, stock.ErrInvalidAmount)

	_, err = l.TryDecrement(ctx, "missing", 1)
	assert.ErrorIs(t, err, stock.ErrProductNotFound)
}

// Hammering one product from many goroutines must never oversell: exactly
// quantity/amount decrements succeed and the rest fail with insufficient
// stock.
func TestLedgerConcurrentDecrementsNeverOversell(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 50)

	const workers = 100
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.TryDecrement(ctx, "sku-a", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, stock.ErrInsufficientStock)
			failed++
		}
	}

	assert.Equal(t, 50, succeeded)
	assert.Equal(t, 50, failed)

	q, err := l.Quantity(ctx, "sku-a")
	require.NoError(t, err)
	assert.Equal(t, 0, q)
}

func TestLedgerIncrement(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 1)

	after, err := l.Increment(ctx, "sku-a", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, after)

	_, err = l.Increment(ctx, "missing", 1)
	assert.ErrorIs(t, err, stock.ErrProductNotFound)

	_, err = l.Increment(ctx, "sku-a", 0)
	assert.ErrorIs(t, err, stock.ErrInvalidAmount)
}

func TestLedgerSetAbsolute(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 10)

	require.NoError(t, l.SetAbsolute(ctx, "sku-a", 25, 10))

	q, err := l.Quantity(ctx, "sku-a")
	require.NoError(t, err)
	assert.Equal(t, 25, q)
}

func TestLedgerSetAbsoluteStaleView(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 10)

	err := l.SetAbsolute(ctx, "sku-a", 25, 8)
	require.ErrorIs(t, err, stock.ErrStaleView)

	q, qerr := l.Quantity(ctx, "sku-a")
	require.NoError(t, qerr)
	assert.Equal(t, 10, q, "stale overwrite must not land")
}

func TestLedgerSetAbsoluteErrors(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.SeedProduct("sku-a", 10)

	assert.ErrorIs(t, l.SetAbsolute(ctx, "sku-a", -1, 10), stock.ErrNegativeQuantity)
	assert.ErrorIs(t, l.SetAbsolute(ctx, "missing", 5, 5), stock.ErrProductNotFound)
}
