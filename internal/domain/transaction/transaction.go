package transaction

import (
	"context"
	"fmt"
)

// Tx is a unit of work opened by a Manager. Repositories receive it so the
// domain does not depend on a concrete SQL driver.
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager opens transactions.
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}

// WithinTx runs fn in a new transaction. The transaction is committed when fn
// returns nil and rolled back otherwise; fn's error is returned unchanged.
func WithinTx(ctx context.Context, m Manager, fn func(tx Tx) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
