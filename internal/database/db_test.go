package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	"contentops/internal/database"
)

func openTemp(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenDriver(context.Background(), "sqlite", filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("OpenDriver: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.db")
	db, err := database.OpenDriver(context.Background(), "sqlite", path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if db.Driver() != database.DriverSQLite {
		t.Fatalf("unexpected driver %q", db.Driver())
	}
	_ = db.Close()

	db, err = database.OpenDriver(context.Background(), "sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var count int
	row := db.QueryRow(context.Background(), sq.Select("COUNT(1)").From("schema_version"))
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one schema_version row, got %d", count)
	}
}

func TestOpenDriverRejectsUnknownDriver(t *testing.T) {
	if _, err := database.OpenDriver(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	now := database.FormatTime(time.Now())
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx *database.Tx) error {
		insert := db.Builder().Insert("tags").
			Columns("id", "organization_id", "name", "created_at").
			Values("t1", "org", "science", now)
		if _, err := tx.Exec(ctx, insert); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := db.QueryRow(ctx, db.Builder().Select("COUNT(1)").From("tags")).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}

func TestTimeRoundTripSortsLexically(t *testing.T) {
	early := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	late := early.Add(1500 * time.Millisecond)
	a, b := database.FormatTime(early), database.FormatTime(late)
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
	parsed, err := database.ParseTime(b)
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !parsed.Equal(late) {
		t.Fatalf("round trip mismatch: %v != %v", parsed, late)
	}
	if _, err := database.ParseTime(""); err == nil {
		t.Fatal("expected error for empty timestamp")
	}
}
