package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewRegisteredOrder(t *testing.T) {
	o, err := New("order-1", RegisteredBuyer("user-42"), []LineItem{
		{ProductID: "sku-b", Quantity: 2, UnitPrice: price("10.00")},
		{ProductID: "sku-a", Quantity: 1, UnitPrice: price("5.50")},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, o.Status)
	assert.True(t, o.TotalAmount.Equal(price("25.50")), "total %s", o.TotalAmount)
	assert.False(t, o.Buyer.IsGuest())
	assert.False(t, o.CreatedAt.IsZero())
}

func TestNewGuestOrderStartsPending(t *testing.T) {
	o, err := New("order-2", GuestBuyer("Ana", "ana@example.com", "12 Main St"), []LineItem{
		{ProductID: "sku-a", Quantity: 3, UnitPrice: price("4.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.Buyer.IsGuest())
	assert.True(t, o.TotalAmount.Equal(price("12.00")))
}

func TestNewSortsItemsByProductID(t *testing.T) {
	o, err := New("order-3", RegisteredBuyer("user-1"), []LineItem{
		{ProductID: "sku-c", Quantity: 1, UnitPrice: price("1.00")},
		{ProductID: "sku-a", Quantity: 1, UnitPrice: price("1.00")},
		{ProductID: "sku-b", Quantity: 1, UnitPrice: price("1.00")},
	})
	require.NoError(t, err)

	got := make([]string, len(o.Items))
	for i, it := range o.Items {
		got[i] = it.ProductID
	}
	assert.Equal(t, []string{"sku-a", "sku-b", "sku-c"}, got)
}

func TestNewValidation(t *testing.T) {
	valid := []LineItem{{ProductID: "sku-a", Quantity: 1, UnitPrice: price("1.00")}}

	tests := []struct {
		name    string
		buyer   BuyerIdentity
		items   []LineItem
		wantErr error
	}{
		{"no items", RegisteredBuyer("u"), nil, ErrNoItems},
		{"zero quantity", RegisteredBuyer("u"), []LineItem{{ProductID: "sku-a", Quantity: 0, UnitPrice: price("1.00")}}, ErrInvalidQuantity},
		{"negative quantity", RegisteredBuyer("u"), []LineItem{{ProductID: "sku-a", Quantity: -2, UnitPrice: price("1.00")}}, ErrInvalidQuantity},
		{"negative price", RegisteredBuyer("u"), []LineItem{{ProductID: "sku-a", Quantity: 1, UnitPrice: price("-0.01")}}, ErrInvalidPrice},
		{"neither buyer path", BuyerIdentity{}, valid, ErrBuyerIdentity},
		{"both buyer paths", BuyerIdentity{UserID: "u", Guest: &GuestContact{Name: "n", Contact: "c", Address: "a"}}, valid, ErrBuyerIdentity},
		{"guest missing contact", GuestBuyer("Ana", "", "12 Main St"), valid, ErrBuyerIdentity},
		{"guest missing address", GuestBuyer("Ana", "ana@example.com", ""), valid, ErrBuyerIdentity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("order-x", tc.buyer, tc.items)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestZeroPriceItemIsAccepted(t *testing.T) {
	// A zero unit price means "resolve from catalog" upstream; the aggregate
	// itself only rejects negatives.
	o, err := New("order-4", RegisteredBuyer("u"), []LineItem{
		{ProductID: "sku-a", Quantity: 2, UnitPrice: decimal.Zero},
	})
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.IsZero())
}

func TestStatusTransitions(t *testing.T) {
	o, err := New("order-5", GuestBuyer("Ana", "ana@example.com", "12 Main St"), []LineItem{
		{ProductID: "sku-a", Quantity: 1, UnitPrice: price("2.00")},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, o.Status)

	o.MarkCompleted()
	assert.Equal(t, StatusCompleted, o.Status)

	o.MarkCancelled()
	assert.Equal(t, StatusCancelled, o.Status)
	assert.False(t, o.UpdatedAt.Before(o.CreatedAt))
}

func TestCloneIsDeep(t *testing.T) {
	o, err := New("order-6", GuestBuyer("Ana", "ana@example.com", "12 Main St"), []LineItem{
		{ProductID: "sku-a", Quantity: 1, UnitPrice: price("2.00")},
	})
	require.NoError(t, err)

	c := o.Clone()
	c.Items[0].Quantity = 99
	c.Buyer.Guest.Name = "Eve"

	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, "Ana", o.Buyer.Guest.Name)
}
