package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
)

const userColumns = `id, email, name, password_hash, superuser, guest, enabled, created_at, updated_at`

func scanUser(row scannable) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Superuser, &u.Guest, &u.Enabled, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get user %s", id)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return getUserByEmail(ctx, s.pool, email)
}

func getUserByEmail(ctx context.Context, db querier, email string) (*user.User, error) {
	u, err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, mapErr(err, "get user by email %s", email)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	return queryAllRaw(ctx, s.pool, `SELECT `+userColumns+` FROM users ORDER BY email`, scanUser)
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) (*user.User, bool, error) {
	return createUser(ctx, s.pool, u)
}

// createUser inserts u unless the email is taken. An existing account is
// returned untouched, so re-provisioning never resets credentials.
func createUser(ctx context.Context, db querier, u *user.User) (*user.User, bool, error) {
	u.Email = strings.ToLower(u.Email)
	created, err := scanUser(db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, superuser, guest, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
		RETURNING `+userColumns,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Superuser, u.Guest, u.Enabled))
	if err == nil {
		return &created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapErr(err, "create user %s", u.Email)
	}
	existing, err := getUserByEmail(ctx, db, u.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// --- Memberships ---

const membershipColumns = `tenant_id, user_id, role, active, created_at`

func scanMembership(row scannable) (tenant.Membership, error) {
	var m tenant.Membership
	err := row.Scan(&m.TenantID, &m.UserID, &m.Role, &m.Active, &m.CreatedAt)
	return m, err
}

func (s *Store) ListMemberships(ctx context.Context, userID string) ([]tenant.Membership, error) {
	ms, err := queryAllRaw(ctx, s.pool,
		`SELECT `+membershipColumns+` FROM tenant_users WHERE user_id = $1 ORDER BY created_at`, scanMembership, userID)
	if err != nil {
		return nil, mapErr(err, "list memberships of %s", userID)
	}
	return ms, nil
}

func (s *Store) ListTenantMembers(ctx context.Context, tenantID string) ([]tenant.Membership, error) {
	ms, err := queryAllRaw(ctx, s.pool,
		`SELECT `+membershipColumns+` FROM tenant_users WHERE tenant_id = $1 ORDER BY created_at`, scanMembership, tenantID)
	if err != nil {
		return nil, mapErr(err, "list members of %s", tenantID)
	}
	return ms, nil
}

func (s *Store) GetMembership(ctx context.Context, tenantID, userID string) (*tenant.Membership, error) {
	m, err := scanMembership(s.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM tenant_users WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID))
	if err != nil {
		return nil, mapErr(err, "get membership %s/%s", tenantID, userID)
	}
	return &m, nil
}

func (s *Store) AddMembership(ctx context.Context, m tenant.Membership) (bool, error) {
	return addMembership(ctx, s.pool, m)
}

func addMembership(ctx context.Context, db querier, m tenant.Membership) (bool, error) {
	tag, err := db.Exec(ctx, `
		INSERT INTO tenant_users (tenant_id, user_id, role, active) VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (tenant_id, user_id) DO NOTHING`,
		m.TenantID, m.UserID, m.Role)
	if err != nil {
		return false, mapWriteErr(err, "add membership %s/%s", m.TenantID, m.UserID)
	}
	return tag.RowsAffected() == 1, nil
}

// queryAllRaw runs a plain SQL query and scans every row.
func queryAllRaw[T any](ctx context.Context, db querier, query string, scan func(scannable) (T, error), args ...any) ([]T, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return orEmpty(out), rows.Err()
}
