package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pf-backoffice/utils"
)

// Options selects and configures the store backend.
type Options struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// URL is the sqlite file path or the postgres connection URL.
	URL            string
	ConnectRetries int
}

// DB is an open document store. All collections share it.
type DB struct {
	sql     *sql.DB
	dialect dialect
}

// dialect captures the SQL differences between the supported backends.
type dialect struct {
	name        string
	numbered    bool   // $1 placeholders instead of ?
	lockForEdit string // row lock suffix for read-modify-write selects
}

// Open connects to the configured backend, waits for it to answer and applies
// the embedded schema migrations.
func Open(ctx context.Context, opts Options, logger *utils.Logger) (*DB, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)

	switch opts.Driver {
	case "sqlite", "":
		db, err = openSQLite(opts.URL)
		d = sqliteDialect
	case "postgres":
		db, err = openPostgres(opts.URL)
		d = postgresDialect
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	retry := &utils.RetryConfig{
		MaxAttempts: opts.ConnectRetries,
		BaseDelay:   time.Second,
		Logger:      logger,
	}
	if err := retry.Do(ctx, d.name+"-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: connect: %w", err)
	}

	if err := Migrate(d.name, opts.URL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	if logger != nil {
		logger.Debug("[storage] %s store ready", d.name)
	}
	return &DB{sql: db, dialect: d}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Driver returns the backend name.
func (db *DB) Driver() string {
	return db.dialect.name
}

// Ping checks the backend is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders for backends that number their parameters.
func (db *DB) rebind(query string) string {
	if !db.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
