package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/quickmart/ordercore/internal/domain/order"
	"github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/domain/storage"
)

func newUoWFixture(t *testing.T) (*UnitOfWork, *Ledger, *OrderRepository, *AuditLog) {
	t.Helper()
	ledger := NewLedger()
	orders := NewOrderRepository()
	audit := NewAuditLog()
	return NewUnitOfWork(ledger, orders, audit), ledger, orders, audit
}

func TestUnitOfWorkCommit(t *testing.T) {
	ctx := context.Background()
	uow, ledger, orders, audit := newUoWFixture(t)
	ledger.SeedProduct("sku-a", 10)

	o, err := domain.New("order-1", domain.RegisteredBuyer("u"), []domain.LineItem{
		{ProductID: "sku-a", Quantity: 2, UnitPrice: decimal.RequireFromString("3.00")},
	})
	require.NoError(t, err)

	err = uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		if _, derr := st.Ledger().TryDecrement(ctx, "sku-a", 2); derr != nil {
			return derr
		}
		if aerr := st.Audit().Record(ctx, &stock.AuditEntry{ProductID: "sku-a", Actor: "test", Delta: -2, QuantityBefore: 10, QuantityAfter: 8}); aerr != nil {
			return aerr
		}
		return st.Orders().Insert(ctx, o)
	})
	require.NoError(t, err)

	q, _ := ledger.Quantity(ctx, "sku-a")
	assert.Equal(t, 8, q)

	stored, err := orders.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", stored.ID)

	entries, err := audit.ListByProduct(ctx, "sku-a", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// A failure mid-unit must restore everything written so far: earlier
// decrements, audit entries, and inserted orders all roll back together.
func TestUnitOfWorkRollbackRestoresAllStores(t *testing.T) {
	ctx := context.Background()
	uow, ledger, orders, audit := newUoWFixture(t)
	ledger.SeedProduct("sku-a", 10)
	ledger.SeedProduct("sku-b", 1)

	o, err := domain.New("order-1", domain.RegisteredBuyer("u"), []domain.LineItem{
		{ProductID: "sku-a", Quantity: 2, UnitPrice: decimal.RequireFromString("3.00")},
	})
	require.NoError(t, err)

	err = uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		if _, derr := st.Ledger().TryDecrement(ctx, "sku-a", 2); derr != nil {
			return derr
		}
		if aerr := st.Audit().Record(ctx, &stock.AuditEntry{ProductID: "sku-a", Actor: "test", Delta: -2, QuantityBefore: 10, QuantityAfter: 8}); aerr != nil {
			return aerr
		}
		if ierr := st.Orders().Insert(ctx, o); ierr != nil {
			return ierr
		}
		// Second line fails and must drag down the first.
		_, derr := st.Ledger().TryDecrement(ctx, "sku-b", 5)
		return derr
	})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	qa, _ := ledger.Quantity(ctx, "sku-a")
	qb, _ := ledger.Quantity(ctx, "sku-b")
	assert.Equal(t, 10, qa)
	assert.Equal(t, 1, qb)

	_, gerr := orders.Get(ctx, "order-1")
	assert.ErrorIs(t, gerr, domain.ErrNotFound)

	entries, lerr := audit.ListByProduct(ctx, "sku-a", 0)
	require.NoError(t, lerr)
	assert.Empty(t, entries)
}

func TestUnitOfWorkRollbackResetsAuditIDs(t *testing.T) {
	ctx := context.Background()
	uow, ledger, _, audit := newUoWFixture(t)
	ledger.SeedProduct("sku-a", 5)

	boom := errors.New("boom")
	err := uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		if aerr := st.Audit().Record(ctx, &stock.AuditEntry{ProductID: "sku-a", Actor: "test", Delta: 1}); aerr != nil {
			return aerr
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	entry := &stock.AuditEntry{ProductID: "sku-a", Actor: "test", Delta: 1}
	require.NoError(t, audit.Record(ctx, entry))
	assert.Equal(t, int64(1), entry.ID, "ids from rolled-back entries must not be burned")
}

func TestUnitOfWorkHonorsCanceledContext(t *testing.T) {
	uow, ledger, _, _ := newUoWFixture(t)
	ledger.SeedProduct("sku-a", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
