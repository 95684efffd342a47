package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxRunner executes a function inside a database transaction. Every write
// issued through the passed *sqlx.Tx commits together or not at all, which is
// what the multi-entity cascades (comment soft delete, post delete) rely on.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type sqlTxRunner struct {
	db *sqlx.DB
}

// NewTxRunner creates a TxRunner backed by the given database.
func NewTxRunner(db *sqlx.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
