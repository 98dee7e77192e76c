package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cfotel "github.com/tradeloom/tradeloom/internal/adapter/otel"
	"github.com/tradeloom/tradeloom/internal/config"
	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/provision"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/port/database"
	"github.com/tradeloom/tradeloom/internal/port/messagequeue"
)

// Tenant creation sources reported in events and metrics.
const (
	SourceAPI       = "api"
	SourceProvision = "provision"
	SourceAdmin     = "admin"
)

// TenantService manages the tenant registry, memberships and the idempotent
// provisioning of the super and guest tenants.
type TenantService struct {
	store   database.Store
	lookup  *TenantLookup
	auth    *AuthService
	cfg     *config.Tenancy
	events  *Events
	metrics *cfotel.Metrics
	// schemaVersion stamps tenants created while the tenant schema is
	// current. Zero disables stamping.
	schemaVersion int64
}

// NewTenantService creates a new TenantService.
func NewTenantService(store database.Store, lookup *TenantLookup, auth *AuthService, cfg *config.Tenancy) *TenantService {
	return &TenantService{store: store, lookup: lookup, auth: auth, cfg: cfg}
}

// SetEvents sets the event publisher.
func (s *TenantService) SetEvents(e *Events) { s.events = e }

// SetMetrics sets the metrics recorder.
func (s *TenantService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// SetSchemaVersion sets the tenant-schema version stamped on new tenants.
func (s *TenantService) SetSchemaVersion(v int64) { s.schemaVersion = v }

// Create validates and creates a new tenant. A taken slug is ErrConflict.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest, source string) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, created, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: tenant %q already exists", domain.ErrConflict, req.Slug)
	}
	s.created(ctx, t, source)
	return t, nil
}

// Get returns a tenant by ID.
func (s *TenantService) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// Update modifies an existing tenant and drops its cached lookups.
func (s *TenantService) Update(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	if err := domain.Validate(&req); err != nil {
		return nil, err
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *t
	req.Apply(t)
	if t.Domain != "" && t.Domain != prev.Domain {
		if err := domain.Validate(struct {
			Domain string `validate:"hostname,max=253"`
		}{t.Domain}); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}

	s.lookup.Invalidate(ctx, &prev)
	s.lookup.Invalidate(ctx, t)
	s.events.Publish(ctx, messagequeue.SubjectTenantUpdated, messagequeue.TenantUpdatedPayload{
		TenantID:   t.ID,
		Slug:       t.Slug,
		Domain:     t.Domain,
		PrevSlug:   prev.Slug,
		PrevDomain: prev.Domain,
	})
	return t, nil
}

// AddMember grants a user a role in a tenant.
func (s *TenantService) AddMember(ctx context.Context, tenantID string, req tenant.MembershipRequest) (*tenant.Membership, error) {
	if err := domain.Validate(&req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, err)
	}
	u, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", req.UserID, err)
	}
	if u.Guest {
		return nil, fmt.Errorf("%w: guest accounts cannot join other tenants", domain.ErrValidation)
	}
	created, err := s.store.AddMembership(ctx, tenant.Membership{TenantID: tenantID, UserID: u.ID, Role: req.Role})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: user %s is already a member", domain.ErrConflict, u.Email)
	}
	return s.store.GetMembership(ctx, tenantID, u.ID)
}

// ListMembers returns the memberships of a tenant.
func (s *TenantService) ListMembers(ctx context.Context, tenantID string) ([]tenant.Membership, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.ListTenantMembers(ctx, tenantID)
}

// EnsureSuperTenant creates the super tenant and, when configured, its
// superuser owner. An existing tenant or user is left unchanged.
func (s *TenantService) EnsureSuperTenant(ctx context.Context) (*tenant.Tenant, provision.Outcome, error) {
	req := tenant.CreateRequest{Name: s.cfg.SuperName, Slug: s.cfg.SuperSlug}
	if req.Name == "" {
		req.Name = "Super Tenant"
	}
	if err := req.Validate(); err != nil {
		return nil, provision.OutcomeFailed, err
	}

	var owner *user.User
	if s.cfg.SuperAdminEmail != "" {
		if s.cfg.SuperAdminPassword == "" {
			return nil, provision.OutcomeFailed, fmt.Errorf("%w: super admin password is not configured", domain.ErrValidation)
		}
		u, err := s.newUser(&user.CreateRequest{
			Email:     s.cfg.SuperAdminEmail,
			Name:      "Administrator",
			Password:  s.cfg.SuperAdminPassword,
			Superuser: true,
		})
		if err != nil {
			return nil, provision.OutcomeFailed, err
		}
		owner = u
	}

	t, outcome, err := s.store.ProvisionTenant(ctx, req, owner, tenant.RoleOwner)
	if err != nil {
		return nil, provision.OutcomeFailed, fmt.Errorf("provision super tenant: %w", err)
	}
	if outcome == provision.OutcomeCreated {
		s.created(ctx, t, SourceProvision)
	}
	return t, outcome, nil
}

// EnsureGuestTenant creates the guest demo tenant and its guest user with an
// admin membership in that tenant only. A second run reports
// OutcomeAlreadyExists and never touches the existing credentials. When
// guest access is disabled the outcome is OutcomeSkipped.
func (s *TenantService) EnsureGuestTenant(ctx context.Context) (*tenant.Tenant, provision.Outcome, error) {
	if !s.cfg.GuestEnabled {
		return nil, provision.OutcomeSkipped, nil
	}
	req := tenant.CreateRequest{Name: s.cfg.GuestName, Slug: s.cfg.GuestSlug}
	if req.Name == "" {
		req.Name = "Guest Demo"
	}
	if err := req.Validate(); err != nil {
		return nil, provision.OutcomeFailed, err
	}

	guest, err := s.newUser(&user.CreateRequest{
		Email:    s.cfg.GuestEmail,
		Name:     "Guest",
		Password: s.cfg.GuestPassword,
		Guest:    true,
	})
	if err != nil {
		return nil, provision.OutcomeFailed, err
	}

	t, outcome, err := s.store.ProvisionTenant(ctx, req, guest, tenant.RoleAdmin)
	if err != nil {
		return nil, provision.OutcomeFailed, fmt.Errorf("provision guest tenant: %w", err)
	}
	if outcome == provision.OutcomeCreated {
		s.created(ctx, t, SourceProvision)
	}
	return t, outcome, nil
}

// StampSchema records the current tenant-schema version for t.
func (s *TenantService) StampSchema(ctx context.Context, t *tenant.Tenant) error {
	if s.schemaVersion == 0 {
		return nil
	}
	return s.store.MarkTenantSchema(ctx, t.ID, s.schemaVersion)
}

func (s *TenantService) newUser(req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return &user.User{
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		PasswordHash: hash,
		Superuser:    req.Superuser,
		Guest:        req.Guest,
		Enabled:      true,
	}, nil
}

func (s *TenantService) created(ctx context.Context, t *tenant.Tenant, source string) {
	if err := s.StampSchema(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "stamp tenant schema", "tenant_id", t.ID, "error", err)
	}
	slog.InfoContext(ctx, "tenant created", "tenant_id", t.ID, "slug", t.Slug, "source", source)
	s.metrics.RecordTenantCreated(ctx, source)
	s.events.Publish(ctx, messagequeue.SubjectTenantCreated, messagequeue.TenantCreatedPayload{
		TenantID: t.ID,
		Slug:     t.Slug,
		Name:     t.Name,
		Source:   source,
	})
}
