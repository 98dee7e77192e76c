package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/port/cache"
	"github.com/tradeloom/tradeloom/internal/port/database"
	"github.com/tradeloom/tradeloom/internal/port/messagequeue"
)

// TenantLookup reads tenants through a cache. Entries are stored under the
// id, slug and domain keys; Invalidate removes all three.
type TenantLookup struct {
	store database.TenantStore
	cache cache.Cache
	ttl   time.Duration
}

// NewTenantLookup creates a lookup. A nil cache reads straight from store.
func NewTenantLookup(store database.TenantStore, c cache.Cache, ttl time.Duration) *TenantLookup {
	return &TenantLookup{store: store, cache: c, ttl: ttl}
}

func idKey(id string) string         { return cache.Key("tenant", "id", id) }
func slugKey(slug string) string     { return cache.Key("tenant", "slug", slug) }
func domainKey(domain string) string { return cache.Key("tenant", "domain", domain) }

// ByID returns the tenant with id.
func (l *TenantLookup) ByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return l.load(ctx, idKey(id), func() (*tenant.Tenant, error) { return l.store.GetTenant(ctx, id) })
}

// BySlug returns the tenant with slug.
func (l *TenantLookup) BySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return l.load(ctx, slugKey(slug), func() (*tenant.Tenant, error) { return l.store.GetTenantBySlug(ctx, slug) })
}

// ByDomain returns the tenant whose custom domain is host.
func (l *TenantLookup) ByDomain(ctx context.Context, host string) (*tenant.Tenant, error) {
	return l.load(ctx, domainKey(host), func() (*tenant.Tenant, error) { return l.store.GetTenantByDomain(ctx, host) })
}

// Invalidate drops every cached key of t.
func (l *TenantLookup) Invalidate(ctx context.Context, t *tenant.Tenant) {
	if l.cache == nil || t == nil {
		return
	}
	keys := []string{idKey(t.ID), slugKey(t.Slug)}
	if t.Domain != "" {
		keys = append(keys, domainKey(t.Domain))
	}
	for _, k := range keys {
		if err := l.cache.Delete(ctx, k); err != nil {
			slog.WarnContext(ctx, "tenant cache invalidate", "key", k, "error", err)
		}
	}
}

// HandleTenantUpdated is a messagequeue.Handler for tenants.updated. It drops
// the current and previous keys so peers stop serving a renamed tenant.
func (l *TenantLookup) HandleTenantUpdated(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.TenantUpdatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode tenant update: %w", err)
	}
	l.Invalidate(ctx, &tenant.Tenant{ID: p.TenantID, Slug: p.Slug, Domain: p.Domain})
	if p.PrevSlug != "" && (p.PrevSlug != p.Slug || p.PrevDomain != p.Domain) {
		l.Invalidate(ctx, &tenant.Tenant{ID: p.TenantID, Slug: p.PrevSlug, Domain: p.PrevDomain})
	}
	return nil
}

// load serves key from the cache or calls fetch and fills it. Misses are
// not cached, so a tenant created after a failed lookup is found at once.
func (l *TenantLookup) load(ctx context.Context, key string, fetch func() (*tenant.Tenant, error)) (*tenant.Tenant, error) {
	if l.cache != nil {
		t, ok, err := cache.GetJSON[tenant.Tenant](ctx, l.cache, key)
		if err != nil {
			slog.WarnContext(ctx, "tenant cache get", "key", key, "error", err)
		}
		if ok {
			return t, nil
		}
	}

	t, err := fetch()
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := cache.SetJSON(ctx, l.cache, key, t, l.ttl); err != nil {
			slog.WarnContext(ctx, "tenant cache set", "key", key, "error", err)
		}
	}
	return t, nil
}
