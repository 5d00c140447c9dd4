package memory

import (
	"context"
	"sync"

	domain "github.com/quickmart/ordercore/internal/domain/order"
	"github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/domain/storage"
)

// UnitOfWork gives the memory stores transactional semantics: units of work
// run one at a time, and a failing unit restores the pre-unit snapshot of all
// three stores. Good enough fidelity for tests and the demo binary; the
// production counterpart is the postgres unit of work.
type UnitOfWork struct {
	mu     sync.Mutex
	ledger *Ledger
	orders *OrderRepository
	audit  *AuditLog
}

func NewUnitOfWork(ledger *Ledger, orders *OrderRepository, audit *AuditLog) *UnitOfWork {
	return &UnitOfWork{ledger: ledger, orders: orders, audit: audit}
}

type txStores struct{ u *UnitOfWork }

func (s txStores) Ledger() stock.Ledger      { return s.u.ledger }
func (s txStores) Orders() domain.Repository { return s.u.orders }
func (s txStores) Audit() stock.AuditLog     { return s.u.audit }

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s storage.TxStores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	ledgerSnap := u.ledger.snapshot()
	ordersSnap := u.orders.snapshot()
	auditSnap, auditNext := u.audit.snapshot()

	if err := fn(ctx, txStores{u: u}); err != nil {
		u.ledger.restore(ledgerSnap)
		u.orders.restore(ordersSnap)
		u.audit.restore(auditSnap, auditNext)
		return err
	}
	return nil
}
