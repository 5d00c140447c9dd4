package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/quickmart/ordercore/internal/domain/order"
	"github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/domain/storage"
)

type txStores struct {
	tx *sql.Tx
}

func (s txStores) Ledger() stock.Ledger      { return &ledger{q: s.tx} }
func (s txStores) Orders() domain.Repository { return &orderRepository{q: s.tx} }
func (s txStores) Audit() stock.AuditLog     { return &auditLog{q: s.tx} }

// Do runs fn inside one database transaction. Read-committed isolation is
// sufficient here: the conditional updates in the ledger re-evaluate their
// predicate under the row lock, so lost updates cannot happen.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st storage.TxStores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, txStores{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
