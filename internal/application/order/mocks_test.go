package order

import (
	"context"
	"strconv"
	"sync"

	domain "github.com/quickmart/ordercore/internal/domain/order"
	domoutbox "github.com/quickmart/ordercore/internal/domain/outbox"
	"github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/domain/storage"
)

type sequentialIDs struct {
	mu   sync.Mutex
	next int
}

func (g *sequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return "order-" + strconv.Itoa(g.next)
}

type fixedID string

func (f fixedID) NewID() string { return string(f) }

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) published() []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domoutbox.Event(nil), p.events...)
}

// mockUnitOfWork hands the wrapped stores straight to the unit function with
// no rollback semantics; used to simulate storage faults.
type mockUnitOfWork struct {
	ledger stock.Ledger
	orders domain.Repository
	audit  stock.AuditLog
}

func (m *mockUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s storage.TxStores) error) error {
	return fn(ctx, m)
}

func (m *mockUnitOfWork) Ledger() stock.Ledger      { return m.ledger }
func (m *mockUnitOfWork) Orders() domain.Repository { return m.orders }
func (m *mockUnitOfWork) Audit() stock.AuditLog     { return m.audit }

// failingOrders fails every write with the configured error.
type failingOrders struct {
	err error
}

func (r *failingOrders) Insert(context.Context, *domain.Order) error { return r.err }
func (r *failingOrders) Get(context.Context, string) (*domain.Order, error) {
	return nil, r.err
}
func (r *failingOrders) Delete(context.Context, string) error { return r.err }
