// Package storage persists the ledger, accounts, categories, budgets and
// recurring templates in SQLite and exposes typed queries over them.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fintrack/internal/core"

	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query method works
// inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries bundles the typed query methods over one DBTX.
type Queries struct {
	db DBTX
}

// New creates Queries over a database handle or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// SQLiteRepository owns the database handle. Mutations that must be atomic
// run through InTx; read paths use the embedded Queries directly.
type SQLiteRepository struct {
	*Queries
	db *sql.DB
}

// NewSQLiteRepository opens (and migrates) the database at path. ":memory:"
// opens a throwaway in-memory database, used by tests.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	dsn := buildDSN(path)
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows one writer at a time; funneling every connection through
	// a single pooled handle avoids SQLITE_BUSY churn between goroutines and
	// keeps an in-memory database on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{Queries: New(db), db: db}, nil
}

// buildDSN attaches the pragmas every connection needs: a bounded lock wait,
// enforced foreign keys, WAL for concurrent readers, and immediate
// transactions so a write transaction takes the writer lock up front instead
// of failing on upgrade midway through.
func buildDSN(path string) string {
	if path == ":memory:" {
		path = "file::memory:"
	}
	pragmas := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_pragma=journal_mode(WAL)",
		"_txlock=immediate",
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InTx runs fn inside a single transaction. Any error from fn rolls the
// whole unit back; this is the all-or-nothing boundary for a ledger write
// plus its aggregate updates.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(fmt.Errorf("begin transaction: %w", err))
	}

	if err := fn(New(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return translateErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// translateErr maps driver-level failures into the shared error taxonomy:
// lock contention becomes core.ErrConflict, missing rows become
// core.ErrNotFound. Everything else passes through unchanged.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", core.ErrConflict, err)
		}
	}
	return err
}
