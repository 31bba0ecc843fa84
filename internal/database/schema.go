package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (db *DB) initSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	var rows int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_version").Scan(&rows); err != nil {
		return fmt.Errorf("check schema_version: %w", err)
	}
	if rows == 0 {
		return db.createSchema(ctx)
	}

	var version int
	if err := db.conn.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (db *DB) createSchema(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		insert := db.Builder().Insert("schema_version").Columns("version").Values(schemaVersion)
		if _, err := tx.Exec(ctx, insert); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	})
}
