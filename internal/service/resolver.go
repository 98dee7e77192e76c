package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	cfotel "github.com/tradeloom/tradeloom/internal/adapter/otel"
	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/port/database"
)

// Resolution sources.
const (
	SourceDomain     = "domain"
	SourceHeader     = "header"
	SourceClaim      = "claim"
	SourceMembership = "membership"
)

// ResolveRequest describes the parts of a request that select a tenant.
type ResolveRequest struct {
	Host     string
	Selector string         // X-Tenant-ID header, id or slug
	Identity *user.Identity // nil for anonymous callers
}

// Resolution is a successfully resolved tenant context.
type Resolution struct {
	Tenant *tenant.Tenant
	Scope  tenant.Scope
	Source string
}

// Resolver binds a request to exactly one tenant. It holds no per-request
// state and is safe for concurrent use.
type Resolver struct {
	tenants    *TenantLookup
	members    database.UserStore
	baseDomain string
	metrics    *cfotel.Metrics
	now        func() time.Time
}

// NewResolver creates a resolver. baseDomain enables "<slug>.<baseDomain>"
// host matching when non-empty.
func NewResolver(tenants *TenantLookup, members database.UserStore, baseDomain string) *Resolver {
	return &Resolver{
		tenants:    tenants,
		members:    members,
		baseDomain: strings.ToLower(strings.Trim(baseDomain, ".")),
		now:        time.Now,
	}
}

// SetMetrics sets the metrics recorder.
func (r *Resolver) SetMetrics(m *cfotel.Metrics) { r.metrics = m }

// Resolve picks the tenant for req. A domain match is tried first, then
// the explicit selector (header, else token claim), then the caller's sole
// active membership. A domain match and a selector naming different
// tenants is ambiguous.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (res *Resolution, err error) {
	host := normalizeHost(req.Host)
	ctx, span := cfotel.StartResolveSpan(ctx, host)
	source := ""
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = resolveOutcome(err)
		}
		r.metrics.RecordResolution(ctx, source, outcome)
		cfotel.EndSpan(span, err)
	}()

	byDomain, err := r.fromHost(ctx, host)
	if err != nil {
		return nil, err
	}

	selector, selSource := req.Selector, SourceHeader
	if selector == "" && req.Identity != nil && req.Identity.ClaimTenantID != "" {
		selector, selSource = req.Identity.ClaimTenantID, SourceClaim
	}
	if selector != "" && req.Identity == nil && byDomain == nil {
		return nil, fmt.Errorf("%w: selecting a tenant requires authentication", domain.ErrUnauthorized)
	}
	var bySelector *tenant.Tenant
	if selector != "" {
		bySelector, err = lookupSelector(ctx, r.tenants, selector)
		if err != nil {
			return nil, err
		}
	}

	var chosen *tenant.Tenant
	switch {
	case byDomain != nil && bySelector != nil && byDomain.ID != bySelector.ID:
		return nil, fmt.Errorf("%w: host %s belongs to %s but %s was selected",
			domain.ErrTenantAmbiguous, host, byDomain.Slug, bySelector.Slug)
	case byDomain != nil:
		chosen, source = byDomain, SourceDomain
	case bySelector != nil:
		chosen, source = bySelector, selSource
	}

	if chosen != nil {
		role, err := r.authorize(ctx, chosen, req.Identity)
		if err != nil {
			return nil, err
		}
		return r.resolution(chosen, role, source)
	}

	source = SourceMembership
	return r.fromMemberships(ctx, req.Identity)
}

// fromHost matches a custom domain, then "<slug>.<baseDomain>".
func (r *Resolver) fromHost(ctx context.Context, host string) (*tenant.Tenant, error) {
	if host == "" {
		return nil, nil
	}
	t, err := r.tenants.ByDomain(ctx, host)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if r.baseDomain == "" {
		return nil, nil
	}
	slug, ok := strings.CutSuffix(host, "."+r.baseDomain)
	if !ok || slug == "" || strings.Contains(slug, ".") || !tenant.ValidSlug(slug) {
		return nil, nil
	}
	t, err = r.tenants.BySlug(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// authorize checks that the tenant is active and the caller may enter it.
// Anonymous callers only reach here through their host and get a scope
// without a role.
func (r *Resolver) authorize(ctx context.Context, t *tenant.Tenant, id *user.Identity) (tenant.Role, error) {
	if !t.IsActive(r.now()) {
		return "", fmt.Errorf("%w: tenant %s is inactive", domain.ErrTenantForbidden, t.Slug)
	}
	if id == nil {
		return "", nil
	}
	if id.Superuser {
		return tenant.RoleOwner, nil
	}
	m, err := r.members.GetMembership(ctx, t.ID, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: not a member of %s", domain.ErrTenantForbidden, t.Slug)
		}
		return "", err
	}
	if !m.Active {
		return "", fmt.Errorf("%w: membership in %s is inactive", domain.ErrTenantForbidden, t.Slug)
	}
	return m.Role, nil
}

// fromMemberships succeeds when the caller has exactly one active
// membership in an active tenant.
func (r *Resolver) fromMemberships(ctx context.Context, id *user.Identity) (*Resolution, error) {
	if id == nil {
		return nil, domain.ErrTenantNotResolved
	}
	ms, err := r.members.ListMemberships(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	var (
		found *tenant.Tenant
		role  tenant.Role
		count int
	)
	now := r.now()
	for _, m := range ms {
		if !m.Active {
			continue
		}
		t, err := r.tenants.ByID(ctx, m.TenantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !t.IsActive(now) {
			continue
		}
		count++
		found, role = t, m.Role
	}

	switch count {
	case 0:
		return nil, fmt.Errorf("%w: no active membership", domain.ErrTenantNotResolved)
	case 1:
		return r.resolution(found, role, SourceMembership)
	default:
		return nil, fmt.Errorf("%w: %d active memberships", domain.ErrTenantAmbiguous, count)
	}
}

func (r *Resolver) resolution(t *tenant.Tenant, role tenant.Role, source string) (*Resolution, error) {
	sc, err := tenant.NewScope(t.ID, role)
	if err != nil {
		return nil, err
	}
	return &Resolution{Tenant: t, Scope: sc, Source: source}, nil
}

// normalizeHost lowercases host and strips any port and trailing dot.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

func resolveOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrTenantNotResolved):
		return "not_resolved"
	case errors.Is(err, domain.ErrTenantAmbiguous):
		return "ambiguous"
	case errors.Is(err, domain.ErrTenantForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
