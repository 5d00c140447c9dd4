package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quickmart/ordercore/internal/domain/stock"
)

type AuditLog struct {
	mu      sync.RWMutex
	entries []*stock.AuditEntry
	nextID  int64
}

func NewAuditLog() *AuditLog {
	return &AuditLog{nextID: 1}
}

func (a *AuditLog) Record(ctx context.Context, entry *stock.AuditEntry) error {
	_ = ctx

	a.mu.Lock()
	defer a.mu.Unlock()

	clone := *entry
	clone.ID = a.nextID
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	a.nextID++
	a.entries = append(a.entries, &clone)
	entry.ID = clone.ID
	entry.CreatedAt = clone.CreatedAt
	return nil
}

func (a *AuditLog) ListByProduct(ctx context.Context, productID string, limit int) ([]*stock.AuditEntry, error) {
	_ = ctx

	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []*stock.AuditEntry
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].ProductID != productID {
			continue
		}
		clone := *a.entries[i]
		out = append(out, &clone)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (a *AuditLog) snapshot() ([]*stock.AuditEntry, int64) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := make([]*stock.AuditEntry, len(a.entries))
	for i, e := range a.entries {
		clone := *e
		snap[i] = &clone
	}
	return snap, a.nextID
}

func (a *AuditLog) restore(snap []*stock.AuditEntry, nextID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = snap
	a.nextID = nextID
}
