package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Querier is the subset of *sql.DB and *sql.Tx the stores use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Conn returns the snapshot transaction carried by ctx, or db if there is none.
func Conn(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// ReadSnapshot runs fn inside one read-only REPEATABLE READ transaction.
// Stores reached through Conn(ctx, ...) inside fn all see the same snapshot.
func ReadSnapshot(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// WithTx runs fn in a read-write transaction, committing when fn returns nil.
// When ctx already carries a transaction, fn joins it and the caller that
// opened it commits.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(tx)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Exclusive runs fn in one read-write READ COMMITTED transaction that holds
// the advisory lock key. Stores reached through Conn, ReadSnapshot or WithTx
// inside fn join that transaction, so reads made after the lock see every
// write committed by the previous holder, and fn's writes commit together.
func Exclusive(ctx context.Context, db *sql.DB, key int64, fn func(ctx context.Context) error) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := LockChain(ctx, tx, key); err != nil {
			return err
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Advisory lock keys, one per hash chain.
const (
	ExpenseChainLock int64 = 0x5e11_0001
	PaymentChainLock int64 = 0x5e11_0002
)

// LockChain takes the transaction-scoped advisory lock for a hash chain.
// The lock is released when tx commits or rolls back.
func LockChain(ctx context.Context, tx *sql.Tx, key int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
		return fmt.Errorf("failed to lock chain: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique violation on
// the named constraint (any constraint when constraint is empty).
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
