package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

const tenantColumns = `id, name, slug, COALESCE(domain, ''), contact_email, contact_phone,
	enabled, trial, trial_ends_at, settings, created_at, updated_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	var settingsJSON []byte
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Domain, &t.ContactEmail, &t.ContactPhone,
		&t.Enabled, &t.Trial, &t.TrialEndsAt, &settingsJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if len(settingsJSON) > 0 {
		_ = json.Unmarshal(settingsJSON, &t.Settings)
	}
	return t, nil
}

func settingsJSON(m map[string]string) []byte {
	if m == nil {
		return []byte("{}")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// --- Tenant CRUD ---

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return orEmpty(tenants), rows.Err()
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	return getTenantBy(ctx, s.pool, "id", id)
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return getTenantBy(ctx, s.pool, "slug", slug)
}

func (s *Store) GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return getTenantBy(ctx, s.pool, "domain", domain)
}

// getTenantBy looks a tenant up by one of its unique columns.
func getTenantBy(ctx context.Context, db querier, column, value string) (*tenant.Tenant, error) {
	t, err := scanTenant(db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE `+column+` = $1`, value))
	if err != nil {
		return nil, mapErr(err, "get tenant by %s %s", column, value)
	}
	return &t, nil
}

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, bool, error) {
	return createTenant(ctx, s.pool, req)
}

// createTenant inserts the tenant unless its slug is taken, in which case
// the existing row is returned with created=false.
func createTenant(ctx context.Context, db querier, req tenant.CreateRequest) (*tenant.Tenant, bool, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO tenants (id, name, slug, domain, contact_email, contact_phone, trial, trial_ends_at, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slug) DO NOTHING
		RETURNING `+tenantColumns,
		uuid.NewString(), req.Name, req.Slug, nullIfEmpty(req.Domain), req.ContactEmail, req.ContactPhone,
		req.Trial, req.TrialEndsAt, settingsJSON(req.Settings))
	t, err := scanTenant(row)
	if err == nil {
		return &t, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapErr(err, "create tenant %s", req.Slug)
	}
	existing, err := getTenantBy(ctx, db, "slug", req.Slug)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants SET name = $2, domain = $3, contact_email = $4, contact_phone = $5,
			enabled = $6, trial = $7, trial_ends_at = $8, settings = $9, updated_at = now()
		WHERE id = $1`,
		t.ID, t.Name, nullIfEmpty(t.Domain), t.ContactEmail, t.ContactPhone,
		t.Enabled, t.Trial, t.TrialEndsAt, settingsJSON(t.Settings))
	if err != nil {
		return mapErr(err, "update tenant %s", t.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapErr(pgx.ErrNoRows, "update tenant %s", t.ID)
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// --- Tenant schema state ---

func (s *Store) MarkTenantSchema(ctx context.Context, id string, version int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_schema_state (tenant_id, version) VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO UPDATE SET version = EXCLUDED.version, updated_at = now()
		WHERE tenant_schema_state.version <> EXCLUDED.version`,
		id, version)
	if err != nil {
		return mapWriteErr(err, "mark tenant schema %s", id)
	}
	return nil
}

func (s *Store) MarkAllTenantSchemas(ctx context.Context, version int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_schema_state (tenant_id, version)
		SELECT id, $1 FROM tenants
		ON CONFLICT (tenant_id) DO UPDATE SET version = EXCLUDED.version, updated_at = now()
		WHERE tenant_schema_state.version <> EXCLUDED.version`,
		version)
	if err != nil {
		return 0, fmt.Errorf("mark tenant schemas: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) UnmarkedTenants(ctx context.Context, version int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id FROM tenants t
		LEFT JOIN tenant_schema_state st ON st.tenant_id = t.id
		WHERE st.version IS DISTINCT FROM $1
		ORDER BY t.slug`, version)
	if err != nil {
		return nil, fmt.Errorf("unmarked tenants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return orEmpty(ids), rows.Err()
}
