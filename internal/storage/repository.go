// Package storage is the persistent store behind the ledger. It is a SQLite
// repository constructed once at process start and injected into the
// services; no package-level connection state exists.
//
// Money columns hold integer cents so that spent-total adjustments can be
// expressed as SQL integer arithmetic: the increment is exact and atomic
// within the enclosing transaction. The repository converts to and from
// decimal.Decimal at its boundary; amounts are validated to at most two
// fractional digits before they get here.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"pockets/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return r, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// toCents converts a scale<=2 decimal to integer cents. Exact by
// construction: amounts are validated before persistence.
func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

// fromCents converts integer cents back to a decimal with two fractional
// digits.
func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// dateColumn formats a Date for its TEXT column; empty for the zero date.
func dateColumn(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func dateFromColumn(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseLocalDate(s)
}

func unixColumn(t time.Time) int64 {
	return t.UTC().Unix()
}
