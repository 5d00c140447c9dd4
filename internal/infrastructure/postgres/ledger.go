package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quickmart/ordercore/internal/domain/stock"
)

// ledger mutates product quantities through single conditional statements.
// The guard lives in the WHERE clause, so two concurrent decrements can never
// both pass a check that only one of them satisfies.
type ledger struct {
	q queryer
}

func (l *ledger) TryDecrement(ctx context.Context, productID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, stock.ErrInvalidAmount
	}

	var newQuantity int
	err := l.q.QueryRowContext(ctx,
		`UPDATE products
		    SET quantity = quantity - $2, updated_at = now()
		  WHERE id = $1 AND quantity >= $2
		 RETURNING quantity`,
		productID, amount).Scan(&newQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		available, qerr := l.Quantity(ctx, productID)
		if qerr != nil {
			return 0, qerr
		}
		return 0, &stock.InsufficientStockError{ProductID: productID, Requested: amount, Available: available}
	}
	if err != nil {
		return 0, fmt.Errorf("decrement product %s: %w", productID, err)
	}
	return newQuantity, nil
}

func (l *ledger) Increment(ctx context.Context, productID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, stock.ErrInvalidAmount
	}

	var newQuantity int
	err := l.q.QueryRowContext(ctx,
		`UPDATE products
		    SET quantity = quantity + $2, updated_at = now()
		  WHERE id = $1
		 RETURNING quantity`,
		productID, amount).Scan(&newQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, stock.ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment product %s: %w", productID, err)
	}
	return newQuantity, nil
}

func (l *ledger) SetAbsolute(ctx context.Context, productID string, newQuantity, expectedQuantity int) error {
	if newQuantity < 0 {
		return stock.ErrNegativeQuantity
	}

	res, err := l.q.ExecContext(ctx,
		`UPDATE products
		    SET quantity = $2, updated_at = now()
		  WHERE id = $1 AND quantity = $3`,
		productID, newQuantity, expectedQuantity)
	if err != nil {
		return fmt.Errorf("set quantity for product %s: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set quantity for product %s: %w", productID, err)
	}
	if affected == 0 {
		if _, qerr := l.Quantity(ctx, productID); qerr != nil {
			return qerr
		}
		return stock.ErrStaleView
	}
	return nil
}

func (l *ledger) Quantity(ctx context.Context, productID string) (int, error) {
	var quantity int
	err := l.q.QueryRowContext(ctx,
		`SELECT quantity FROM products WHERE id = $1`, productID).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, stock.ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read quantity for product %s: %w", productID, err)
	}
	return quantity, nil
}
