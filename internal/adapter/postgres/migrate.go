package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql (needed by goose)
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/pressly/goose/v3/lock"

	dbport "github.com/tradeloom/tradeloom/internal/port/database"
)

//go:embed migrations/shared/*.sql migrations/tenant/*.sql
var migrations embed.FS

// MigrationSet names one of the two independently versioned migration sets.
type MigrationSet = dbport.MigrationSet

const (
	SetShared = dbport.SetShared
	SetTenant = dbport.SetTenant
)

var _ dbport.Migrator = (*Migrator)(nil)

// versionTables keeps the two sets in separate goose version tables so they
// can be applied and verified independently.
var versionTables = map[MigrationSet]string{
	SetShared: "goose_shared_version",
	SetTenant: "goose_tenant_version",
}

// Migrator applies the shared and tenant migration sets.
type Migrator struct {
	db        *sql.DB
	providers map[MigrationSet]*goose.Provider
}

// NewMigrator opens a database/sql connection on dsn and prepares both sets
// from the embedded migrations.
func NewMigrator(dsn string) (*Migrator, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db for migrations: %w", err)
	}
	m, err := NewMigratorFS(db, migrations)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

// NewMigratorFS builds a Migrator over fsys, which must contain
// migrations/shared and migrations/tenant directories.
func NewMigratorFS(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	m := &Migrator{db: db, providers: make(map[MigrationSet]*goose.Provider, 2)}
	for set, table := range versionTables {
		sub, err := fs.Sub(fsys, "migrations/"+string(set))
		if err != nil {
			return nil, fmt.Errorf("migrations %s: %w", set, err)
		}
		store, err := database.NewStore(database.DialectPostgres, table)
		if err != nil {
			return nil, fmt.Errorf("migration store %s: %w", set, err)
		}
		locker, err := lock.NewPostgresSessionLocker()
		if err != nil {
			return nil, fmt.Errorf("migration lock %s: %w", set, err)
		}
		p, err := goose.NewProvider("", db, sub,
			goose.WithStore(store),
			goose.WithSessionLocker(locker),
		)
		if err != nil {
			return nil, fmt.Errorf("migration provider %s: %w", set, err)
		}
		m.providers[set] = p
	}
	return m, nil
}

func (m *Migrator) provider(set MigrationSet) (*goose.Provider, error) {
	p, ok := m.providers[set]
	if !ok {
		return nil, fmt.Errorf("unknown migration set %q", set)
	}
	return p, nil
}

// Up applies all pending migrations of set and returns how many ran.
// Re-running against an up-to-date database applies nothing and succeeds.
func (m *Migrator) Up(ctx context.Context, set MigrationSet) (int, error) {
	p, err := m.provider(set)
	if err != nil {
		return 0, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("migrate %s: %w", set, err)
	}
	return len(results), nil
}

// Pending reports whether set has unapplied migrations.
func (m *Migrator) Pending(ctx context.Context, set MigrationSet) (bool, error) {
	p, err := m.provider(set)
	if err != nil {
		return false, err
	}
	pending, err := p.HasPending(ctx)
	if err != nil {
		return false, fmt.Errorf("pending %s: %w", set, err)
	}
	return pending, nil
}

// Version returns the applied version of set.
func (m *Migrator) Version(ctx context.Context, set MigrationSet) (int64, error) {
	p, err := m.provider(set)
	if err != nil {
		return 0, err
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("version %s: %w", set, err)
	}
	return v, nil
}

// Latest returns the highest version available in set's sources.
func (m *Migrator) Latest(set MigrationSet) int64 {
	p, err := m.provider(set)
	if err != nil {
		return 0
	}
	var latest int64
	for _, s := range p.ListSources() {
		if s.Version > latest {
			latest = s.Version
		}
	}
	return latest
}

// Close releases the database connection.
func (m *Migrator) Close() error {
	return m.db.Close()
}
