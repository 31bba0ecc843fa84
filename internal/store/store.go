package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"contentops/internal/database"
	"contentops/internal/services"
)

// Store manages record persistence over the shared database.
type Store struct {
	db *database.DB
	q  database.Querier
}

// New wraps an open database.
func New(db *database.DB) *Store {
	return &Store{db: db, q: db}
}

// DB exposes the underlying database for packages sharing the connection.
func (s *Store) DB() *database.DB {
	return s.db
}

// WithTx runs fn with a Store bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		return fn(&Store{db: s.db, q: tx})
	})
}

func (s *Store) builder() sq.StatementBuilderType {
	return s.db.Builder()
}

func newID() string {
	return uuid.NewString()
}

func notFound(entity, id string) error {
	return services.Wrap(services.ErrNotFound, "store", entity, id+" not found", nil)
}
