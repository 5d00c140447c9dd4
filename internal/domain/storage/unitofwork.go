package storage

import (
	"context"

	"github.com/quickmart/ordercore/internal/domain/order"
	"github.com/quickmart/ordercore/internal/domain/stock"
)

// TxStores exposes the stores participating in one unit of work. Everything
// obtained from it operates inside the same transaction.
type TxStores interface {
	Ledger() stock.Ledger
	Orders() order.Repository
	Audit() stock.AuditLog
}

// UnitOfWork runs fn atomically: every store mutation inside fn commits
// together, or none of them persist. A non-nil error from fn rolls the whole
// unit back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error
}
