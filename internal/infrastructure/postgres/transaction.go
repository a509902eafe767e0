package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
)

// sqlxTx adapts *sqlx.Tx to transaction.Tx.
type sqlxTx struct {
	*sqlx.Tx
}

func (t *sqlxTx) Commit() error   { return t.Tx.Commit() }
func (t *sqlxTx) Rollback() error { return t.Tx.Rollback() }

// TxManager opens transactions on a sqlx pool.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlxTx{Tx: tx}, nil
}

// execer is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx.
type execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// conn returns the transaction behind tx, or db when tx is nil.
func conn(db *sqlx.DB, tx transaction.Tx) (execer, error) {
	if tx == nil {
		return db, nil
	}
	w, ok := tx.(*sqlxTx)
	if !ok {
		return nil, fmt.Errorf("unsupported transaction type %T", tx)
	}
	return w.Tx, nil
}

var _ transaction.Manager = (*TxManager)(nil)
