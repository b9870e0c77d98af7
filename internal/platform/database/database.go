package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"ukepenger/internal/platform/config"
)

// Querier is the statement surface shared by DB and Tx. Repositories accept
// it so the same code runs inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DB struct {
	DB      *sql.DB
	dialect Dialect
}

func Open(cfg config.DatabaseConfig) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if dialect.Name() == "sqlite" && !isMemory(dsn) {
		if dsn, err = prepareSQLiteFile(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	// Every connection to ":memory:" is a separate database.
	if isMemory(cfg.URL) {
		maxConns = 1
	} else {
		db.SetConnMaxLifetime(time.Hour)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, dialect: dialect}, nil
}

// New wraps an existing handle, e.g. one produced by sqlmock.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, dialect: dialect}
}

// prepareSQLiteFile creates the database directory and turns on WAL and a
// busy timeout so concurrent writers wait instead of failing.
func prepareSQLiteFile(dsn string) (string, error) {
	file, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create database directory: %w", err)
		}
	}
	params := []string{}
	if query != "" {
		params = append(params, query)
	}
	if !strings.Contains(query, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(query, "_journal_mode") {
		params = append(params, "_journal_mode=WAL")
	}
	return "file:" + file + "?" + strings.Join(params, "&"), nil
}

func isMemory(url string) bool {
	return strings.Contains(url, ":memory:") || strings.Contains(url, "mode=memory")
}

func (d *DB) Dialect() Dialect { return d.dialect }

func (d *DB) Close() error { return d.DB.Close() }

func (d *DB) PingContext(ctx context.Context) error { return d.DB.PingContext(ctx) }

func (d *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return d.DB.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return d.DB.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.DB.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}

type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// WithTx runs fn in a transaction, committing when it returns nil and
// rolling back otherwise. fn must issue every statement through q.
func (d *DB) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{tx: tx, dialect: d.dialect}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
