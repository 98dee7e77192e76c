package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain/provision"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
)

// ProvisionTenant creates the tenant, its owner and the owner's membership in
// one transaction. Rows that already exist are left as they are; the outcome
// reports whether the tenant itself was created. owner may be nil. An
// existing account that cannot stand in for owner rolls everything back.
func (s *Store) ProvisionTenant(ctx context.Context, req tenant.CreateRequest, owner *user.User, role tenant.Role) (*tenant.Tenant, provision.Outcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, provision.OutcomeFailed, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, created, err := createTenant(ctx, tx, req)
	if err != nil {
		return nil, provision.OutcomeFailed, err
	}

	if owner != nil {
		if owner.ID == "" {
			owner.ID = uuid.NewString()
		}
		u, userCreated, err := createUser(ctx, tx, owner)
		if err != nil {
			return nil, provision.OutcomeFailed, err
		}
		if !userCreated {
			if err := user.CheckOwner(owner, u); err != nil {
				return nil, provision.OutcomeFailed, err
			}
		}
		if _, err := addMembership(ctx, tx, tenant.Membership{TenantID: t.ID, UserID: u.ID, Role: role}); err != nil {
			return nil, provision.OutcomeFailed, err
		}
		*owner = *u
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, provision.OutcomeFailed, fmt.Errorf("commit provision %s: %w", req.Slug, err)
	}

	if created {
		return t, provision.OutcomeCreated, nil
	}
	return t, provision.OutcomeAlreadyExists, nil
}
