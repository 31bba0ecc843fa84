package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"contentops/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the shared connection pool with driver-aware statement building
// and SQLITE_BUSY retries.
type DB struct {
	conn    *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

// Tx is a transaction handle exposing the same statement helpers as DB.
type Tx struct {
	tx *sql.Tx
}

// Querier is satisfied by both DB and Tx so store code can run inside or
// outside a transaction.
type Querier interface {
	Exec(ctx context.Context, stmt sq.Sqlizer) (sql.Result, error)
	QueryRow(ctx context.Context, stmt sq.Sqlizer) RowScanner
	Query(ctx context.Context, stmt sq.Sqlizer) (*sql.Rows, error)
}

// RowScanner is the single-row subset of *sql.Row.
type RowScanner interface {
	Scan(dest ...any) error
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open connects to the configured database and ensures the schema exists.
func Open(cfg *config.Config) (*DB, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenDriver(context.Background(), cfg.Database.Driver, cfg.DatabaseDSN())
}

// OpenDriver connects using an explicit driver and DSN.
func OpenDriver(ctx context.Context, driver, dsn string) (*DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	var (
		conn        *sql.DB
		err         error
		placeholder sq.PlaceholderFormat
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		placeholder = sq.Question
		conn, err = openSQLite(ctx, dsn)
	case DriverPostgres:
		placeholder = sq.Dollar
		conn, err = sql.Open("postgres", dsn)
		if err == nil {
			err = conn.PingContext(ctx)
			if err != nil {
				_ = conn.Close()
			}
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	db := &DB{
		conn:    conn,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
	if err := db.initSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		path = filepath.Clean(path)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := conn.ExecContext(ctx, pragma); execErr != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return conn, nil
}

// Driver returns the normalized driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Builder returns a squirrel statement builder using the driver's placeholder format.
func (db *DB) Builder() sq.StatementBuilderType {
	return db.builder
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ensureContext(ctx))
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Exec runs a statement, retrying while SQLite reports the database busy.
func (db *DB) Exec(ctx context.Context, stmt sq.Sqlizer) (sql.Result, error) {
	ctx = ensureContext(ctx)
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	var res sql.Result
	err = retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = db.conn.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

// QueryRow runs a single-row query.
func (db *DB) QueryRow(ctx context.Context, stmt sq.Sqlizer) RowScanner {
	ctx = ensureContext(ctx)
	query, args, err := stmt.ToSql()
	if err != nil {
		return errRow{err: fmt.Errorf("build query: %w", err)}
	}
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Query runs a multi-row query, retrying while SQLite reports the database busy.
func (db *DB) Query(ctx context.Context, stmt sq.Sqlizer) (*sql.Rows, error) {
	ctx = ensureContext(ctx)
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows *sql.Rows
	err = retryOnBusy(ctx, func() error {
		var queryErr error
		rows, queryErr = db.conn.QueryContext(ctx, query, args...)
		return queryErr
	})
	return rows, err
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		sqlTx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = sqlTx.Rollback() }()

		if err := fn(&Tx{tx: sqlTx}); err != nil {
			return err
		}
		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func (t *Tx) Exec(ctx context.Context, stmt sq.Sqlizer) (sql.Result, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return t.tx.ExecContext(ensureContext(ctx), query, args...)
}

func (t *Tx) QueryRow(ctx context.Context, stmt sq.Sqlizer) RowScanner {
	query, args, err := stmt.ToSql()
	if err != nil {
		return errRow{err: fmt.Errorf("build query: %w", err)}
	}
	return t.tx.QueryRowContext(ensureContext(ctx), query, args...)
}

func (t *Tx) Query(ctx context.Context, stmt sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return t.tx.QueryContext(ensureContext(ctx), query, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
