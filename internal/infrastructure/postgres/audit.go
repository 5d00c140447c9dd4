package postgres

import (
	"context"
	"fmt"

	"github.com/quickmart/ordercore/internal/domain/stock"
)

// auditLog appends to stock_audit. No update or delete statements exist in
// this file on purpose.
type auditLog struct {
	q queryer
}

func (a *auditLog) Record(ctx context.Context, entry *stock.AuditEntry) error {
	err := a.q.QueryRowContext(ctx,
		`INSERT INTO stock_audit (product_id, actor, delta, quantity_before, quantity_after, reason)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		entry.ProductID, entry.Actor, entry.Delta,
		entry.QuantityBefore, entry.QuantityAfter, entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (a *auditLog) ListByProduct(ctx context.Context, productID string, limit int) ([]*stock.AuditEntry, error) {
	query := `SELECT id, product_id, actor, delta, quantity_before, quantity_after, reason, created_at
	            FROM stock_audit WHERE product_id = $1
	        ORDER BY created_at DESC, id DESC`
	args := []any{productID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*stock.AuditEntry
	for rows.Next() {
		var e stock.AuditEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Actor, &e.Delta,
			&e.QuantityBefore, &e.QuantityAfter, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
