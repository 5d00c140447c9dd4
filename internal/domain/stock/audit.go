package stock

import (
	"context"
	"time"
)

// SystemOrderActor names the order flow as the actor of a ledger mutation,
// keeping the entry traceable back to the order that caused it.
func SystemOrderActor(orderID string) string { return "system:order#" + orderID }

// AuditEntry records a single ledger mutation: who changed what, by how much,
// and the quantity on both sides of the change.
type AuditEntry struct {
	ID             int64
	ProductID      string
	Actor          string
	Delta          int
	QuantityBefore int
	QuantityAfter  int
	Reason         string
	CreatedAt      time.Time
}

// AuditLog is the append-only history of ledger mutations. No update or
// delete operations exist; entries written in a rolled-back unit of work must
// not survive the rollback.
type AuditLog interface {
	Record(ctx context.Context, entry *AuditEntry) error

	// ListByProduct returns entries for a product in reverse-chronological
	// order, at most limit entries when limit is positive.
	ListByProduct(ctx context.Context, productID string, limit int) ([]*AuditEntry, error)
}
