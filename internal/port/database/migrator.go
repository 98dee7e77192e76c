package database

import "context"

// MigrationSet names one of the two independently versioned schema sets.
type MigrationSet string

const (
	// SetShared holds the tenant registry, users and memberships.
	SetShared MigrationSet = "shared"
	// SetTenant holds the tenant-partitioned business tables.
	SetTenant MigrationSet = "tenant"
)

// Migrator applies forward-only schema migrations for one set at a time.
type Migrator interface {
	// Up applies pending migrations and returns how many ran.
	Up(ctx context.Context, set MigrationSet) (int, error)
	// Pending reports whether set has unapplied migrations.
	Pending(ctx context.Context, set MigrationSet) (bool, error)
	// Version returns the applied version of set.
	Version(ctx context.Context, set MigrationSet) (int64, error)
	// Latest returns the highest version known for set.
	Latest(set MigrationSet) int64
}
