package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradeloom/tradeloom/internal/port/database"
)

var _ database.Store = (*Store)(nil)

// Store implements database.Store using PostgreSQL.
//
// Tenants, users and memberships live in the shared schema and are queried
// directly. Business entities are reached only through scoped builders
// (see scope.go), which bind every statement to the caller's tenant.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
