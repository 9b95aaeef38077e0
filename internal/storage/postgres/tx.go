package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are written against it so the same code runs inside and
// outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Runner owns the commit/rollback discipline for every mutating service
// operation: begin, bound lock waits, run the unit of work, commit on
// success, roll back on error or panic.
type Runner struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewRunner(db *sql.DB, lockTimeout time.Duration) *Runner {
	return &Runner{db: db, lockTimeout: lockTimeout}
}

// InTx executes fn inside a single transaction. Errors returned by fn pass
// through untouched so typed kinds survive; begin/commit failures are
// normalized to a storage error.
func (r *Runner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage(err)
	}

	if r.lockTimeout > 0 {
		// SET LOCAL resets at commit/rollback, so the bound only applies to
		// this transaction's FOR UPDATE waits.
		q := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return apperr.Storage(err)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Postgres error codes the repositories care about.
const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

// Err maps low-level driver failures to the taxonomy. sql.ErrNoRows is left
// alone so repositories can translate it with an entity-specific message.
func Err(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict("resource already exists")
		case pgLockNotAvailable:
			return apperr.Timeout("row lock wait timed out", err)
		}
	}
	return apperr.Storage(err)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// failure, for repositories that want a more specific conflict message.
func IsUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
