package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	domain "github.com/quickmart/ordercore/internal/domain/order"
)

type orderRepository struct {
	q queryer
}

func (r *orderRepository) Insert(ctx context.Context, o *domain.Order) error {
	var userID, guestName, guestContact, guestAddress sql.NullString
	if g := o.Buyer.Guest; g != nil {
		guestName = sql.NullString{String: g.Name, Valid: true}
		guestContact = sql.NullString{String: g.Contact, Valid: true}
		guestAddress = sql.NullString{String: g.Address, Valid: true}
	} else {
		userID = sql.NullString{String: o.Buyer.UserID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO orders (id, buyer_user_id, guest_name, guest_contact, guest_address,
		                     total_amount, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, userID, guestName, guestContact, guestAddress,
		o.TotalAmount.String(), string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, buyer_user_id, guest_name, guest_contact, guest_address,
		        total_amount, status, created_at, updated_at
		   FROM orders WHERE id = $1`, id)

	var o domain.Order
	var userID, guestName, guestContact, guestAddress sql.NullString
	var total, status string
	err := row.Scan(&o.ID, &userID, &guestName, &guestContact, &guestAddress,
		&total, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if userID.Valid {
		o.Buyer = domain.RegisteredBuyer(userID.String)
	} else {
		o.Buyer = domain.GuestBuyer(guestName.String, guestContact.String, guestAddress.String)
	}
	o.Status = domain.Status(status)
	if o.TotalAmount, err = parseDecimal(total); err != nil {
		return nil, fmt.Errorf("order %s total: %w", id, err)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *orderRepository) items(ctx context.Context, orderID string) ([]domain.Item, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT product_id, quantity, unit_price
		   FROM order_items WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		var price string
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if it.UnitPrice, err = parseDecimal(price); err != nil {
			return nil, fmt.Errorf("order item price: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	// order_items go with the order via ON DELETE CASCADE.
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}
