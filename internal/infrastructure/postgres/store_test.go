package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quickmart/ordercore/internal/domain/catalog"
	domorder "github.com/quickmart/ordercore/internal/domain/order"
	"github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/domain/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("testuser"),
		pgcontainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.RunMigrations("../../../migrations"))
	return store
}

func seedProduct(t *testing.T, store *Store, id string, price string, quantity int) {
	t.Helper()
	require.NoError(t, store.CreateProduct(context.Background(), &catalog.Product{
		ID:        id,
		Name:      "Product " + id,
		Category:  "test",
		UnitPrice: decimal.RequireFromString(price),
	}, quantity))
}

func TestStoreGetProduct(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedProduct(t, store, "sku-a", "10.00", 5)

	p, err := store.GetProduct(ctx, "sku-a")
	require.NoError(t, err)
	assert.Equal(t, "sku-a", p.ID)
	assert.True(t, p.UnitPrice.Equal(decimal.RequireFromString("10.00")))

	_, err = store.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestStoreCheckoutTransaction(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedProduct(t, store, "sku-a", "10.00", 10)
	seedProduct(t, store, "sku-b", "20.00", 5)

	o, err := domorder.New(uuid.NewString(), domorder.GuestBuyer("Ana", "ana@example.com", "12 Main St"),
		[]domorder.LineItem{
			{ProductID: "sku-a", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "sku-b", Quantity: 1, UnitPrice: decimal.RequireFromString("20.00")},
		})
	require.NoError(t, err)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		for _, it := range o.Items {
			after, derr := st.Ledger().TryDecrement(ctx, it.ProductID, it.Quantity)
			if derr != nil {
				return derr
			}
			if aerr := st.Audit().Record(ctx, &stock.AuditEntry{
				ProductID:      it.ProductID,
				Actor:          stock.SystemOrderActor(o.ID),
				Delta:          -it.Quantity,
				QuantityBefore: after + it.Quantity,
				QuantityAfter:  after,
				Reason:         "order placement",
			}); aerr != nil {
				return aerr
			}
		}
		return st.Orders().Insert(ctx, o)
	})
	require.NoError(t, err)

	var fetched *domorder.Order
	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		var gerr error
		fetched, gerr = st.Orders().Get(ctx, o.ID)
		return gerr
	})
	require.NoError(t, err)
	assert.Equal(t, o.ID, fetched.ID)
	assert.Equal(t, domorder.StatusPending, fetched.Status)
	require.NotNil(t, fetched.Buyer.Guest)
	assert.Equal(t, "Ana", fetched.Buyer.Guest.Name)
	require.Len(t, fetched.Items, 2)
	assert.Equal(t, "sku-a", fetched.Items[0].ProductID, "items come back sorted by product id")
	assert.True(t, fetched.TotalAmount.Equal(decimal.RequireFromString("40.00")))

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		qa, qerr := st.Ledger().Quantity(ctx, "sku-a")
		if qerr != nil {
			return qerr
		}
		assert.Equal(t, 8, qa)

		entries, lerr := st.Audit().ListByProduct(ctx, "sku-a", 0)
		if lerr != nil {
			return lerr
		}
		require.Len(t, entries, 1)
		assert.Equal(t, stock.SystemOrderActor(o.ID), entries[0].Actor)
		assert.Equal(t, -2, entries[0].Delta)
		return nil
	})
	require.NoError(t, err)
}

// A failing line must roll back the decrements and audit entries of earlier
// lines in the same transaction.
func TestStoreRollbackOnInsufficientStock(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedProduct(t, store, "sku-a", "10.00", 10)
	seedProduct(t, store, "sku-b", "20.00", 1)

	err := store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		if _, derr := st.Ledger().TryDecrement(ctx, "sku-a", 3); derr != nil {
			return derr
		}
		if aerr := st.Audit().Record(ctx, &stock.AuditEntry{
			ProductID: "sku-a", Actor: "test", Delta: -3, QuantityBefore: 10, QuantityAfter: 7,
		}); aerr != nil {
			return aerr
		}
		_, derr := st.Ledger().TryDecrement(ctx, "sku-b", 2)
		return derr
	})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	var ise *stock.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "sku-b", ise.ProductID)
	assert.Equal(t, 1, ise.Available)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		qa, qerr := st.Ledger().Quantity(ctx, "sku-a")
		if qerr != nil {
			return qerr
		}
		assert.Equal(t, 10, qa, "decrement must roll back")

		entries, lerr := st.Audit().ListByProduct(ctx, "sku-a", 0)
		if lerr != nil {
			return lerr
		}
		assert.Empty(t, entries, "audit entry must roll back")
		return nil
	})
	require.NoError(t, err)
}

func TestStoreSetAbsoluteStaleView(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedProduct(t, store, "sku-a", "10.00", 10)

	err := store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		return st.Ledger().SetAbsolute(ctx, "sku-a", 25, 8)
	})
	require.ErrorIs(t, err, stock.ErrStaleView)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		return st.Ledger().SetAbsolute(ctx, "sku-a", 25, 10)
	})
	require.NoError(t, err)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		q, qerr := st.Ledger().Quantity(ctx, "sku-a")
		if qerr != nil {
			return qerr
		}
		assert.Equal(t, 25, q)
		return nil
	})
	require.NoError(t, err)
}

func TestStoreOrderConflictAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedProduct(t, store, "sku-a", "10.00", 10)

	o, err := domorder.New(uuid.NewString(), domorder.RegisteredBuyer("user-42"),
		[]domorder.LineItem{{ProductID: "sku-a", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")}})
	require.NoError(t, err)

	insert := func() error {
		return store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
			return st.Orders().Insert(ctx, o)
		})
	}
	require.NoError(t, insert())
	assert.ErrorIs(t, insert(), domorder.ErrConflict)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		return st.Orders().Delete(ctx, o.ID)
	})
	require.NoError(t, err)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		_, gerr := st.Orders().Get(ctx, o.ID)
		return gerr
	})
	assert.ErrorIs(t, err, domorder.ErrNotFound)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		return st.Orders().Delete(ctx, o.ID)
	})
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestStoreAuditTrailOrderAndLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedProduct(t, store, "sku-a", "10.00", 10)

	for i, after := range []int{20, 18, 40} {
		err := store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
			return st.Audit().Record(ctx, &stock.AuditEntry{
				ProductID:     "sku-a",
				Actor:         "clerk:test",
				Delta:         i,
				QuantityAfter: after,
			})
		})
		require.NoError(t, err)
	}

	err := store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		entries, lerr := st.Audit().ListByProduct(ctx, "sku-a", 0)
		if lerr != nil {
			return lerr
		}
		require.Len(t, entries, 3)
		assert.Equal(t, 40, entries[0].QuantityAfter, "newest first")
		assert.Equal(t, 20, entries[2].QuantityAfter)

		limited, lerr := st.Audit().ListByProduct(ctx, "sku-a", 2)
		if lerr != nil {
			return lerr
		}
		assert.Len(t, limited, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestStoreUnknownProduct(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		_, derr := st.Ledger().TryDecrement(ctx, "missing", 1)
		return derr
	})
	assert.ErrorIs(t, err, stock.ErrProductNotFound)

	err = store.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		return st.Ledger().SetAbsolute(ctx, "missing", 5, 5)
	})
	assert.ErrorIs(t, err, stock.ErrProductNotFound)
}
