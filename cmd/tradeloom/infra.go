package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go/jetstream"

	cfhttp "github.com/tradeloom/tradeloom/internal/adapter/http"
	cfnats "github.com/tradeloom/tradeloom/internal/adapter/nats"
	"github.com/tradeloom/tradeloom/internal/adapter/natskv"
	cfotel "github.com/tradeloom/tradeloom/internal/adapter/otel"
	"github.com/tradeloom/tradeloom/internal/adapter/postgres"
	"github.com/tradeloom/tradeloom/internal/adapter/ristretto"
	"github.com/tradeloom/tradeloom/internal/adapter/tiered"
	"github.com/tradeloom/tradeloom/internal/config"
	"github.com/tradeloom/tradeloom/internal/port/cache"
	"github.com/tradeloom/tradeloom/internal/resilience"
	"github.com/tradeloom/tradeloom/internal/service"
)

// infra holds the connections shared by every subcommand. queue and
// idempotency are nil when NATS is not configured or unreachable.
type infra struct {
	pool        *pgxpool.Pool
	store       *postgres.Store
	migrator    *postgres.Migrator
	queue       *cfnats.Queue
	l1          *ristretto.Cache
	cache       cache.Cache
	idempotency jetstream.KeyValue
}

// openInfra connects to PostgreSQL and, when configured, NATS. A NATS
// failure is logged and the process continues without events or L2 cache.
func openInfra(ctx context.Context, cfg *config.Config) (*infra, error) {
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	migrator, err := postgres.NewMigrator(cfg.Postgres.DSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrator: %w", err)
	}

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		_ = migrator.Close()
		pool.Close()
		return nil, fmt.Errorf("tenant cache: %w", err)
	}

	in := &infra{
		pool:     pool,
		store:    postgres.NewStore(pool),
		migrator: migrator,
		l1:       l1,
		cache:    l1,
	}

	if cfg.NATS.URL == "" {
		slog.Info("nats disabled")
		return in, nil
	}

	queue, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, continuing without events", "error", err)
		return in, nil
	}
	in.queue = queue
	slog.Info("nats connected")

	l2, err := natskv.Open(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.TTL)
	if err != nil {
		slog.Warn("tenant L2 cache unavailable", "bucket", cfg.Cache.L2Bucket, "error", err)
	} else {
		in.cache = tiered.New(l1, l2, cfg.Cache.TTL)
	}

	kv, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		slog.Warn("idempotency store unavailable", "bucket", cfg.Idempotency.Bucket, "error", err)
	} else {
		in.idempotency = kv
	}
	return in, nil
}

// Close releases every connection in reverse order of opening.
func (in *infra) Close() {
	if in.queue != nil {
		if err := in.queue.Drain(); err != nil {
			slog.Warn("nats drain", "error", err)
		}
	}
	in.l1.Close()
	if err := in.migrator.Close(); err != nil {
		slog.Warn("migrator close", "error", err)
	}
	in.pool.Close()
}

// app wires the services on top of infra.
type app struct {
	cfg   *config.Config
	infra *infra

	events   *service.Events
	lookup   *service.TenantLookup
	auth     *service.AuthService
	tenants  *service.TenantService
	resolver *service.Resolver
	search   *service.SearchService
}

func newApp(cfg *config.Config, in *infra) *app {
	a := &app{cfg: cfg, infra: in}

	if in.queue != nil {
		breaker := resilience.NewBreaker("nats", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
		a.events = service.NewEvents(in.queue, breaker)
	}

	a.lookup = service.NewTenantLookup(in.store, in.cache, cfg.Cache.TTL)
	a.auth = service.NewAuthService(in.store, a.lookup, &cfg.Auth, &cfg.Tenancy)
	a.tenants = service.NewTenantService(in.store, a.lookup, a.auth, &cfg.Tenancy)
	a.tenants.SetEvents(a.events)
	a.resolver = service.NewResolver(a.lookup, in.store, cfg.Tenancy.BaseDomain)
	a.search = service.NewSearchService(in.store, cfg.Tenancy.SearchLimit)
	return a
}

func (a *app) setMetrics(m *cfotel.Metrics) {
	a.tenants.SetMetrics(m)
	a.resolver.SetMetrics(m)
	a.search.SetMetrics(m)
}

// handlers builds the HTTP handler set. ready backs the health endpoint.
func (a *app) handlers(ready func(ctx context.Context) error) *cfhttp.Handlers {
	store := a.infra.store
	return &cfhttp.Handlers{
		Auth:           a.auth,
		Tenants:        a.tenants,
		Searcher:       a.search,
		Customers:      service.NewCustomerService(store),
		Suppliers:      service.NewSupplierService(store),
		Contacts:       service.NewContactService(store),
		Plants:         service.NewPlantService(store),
		Carriers:       service.NewCarrierService(store),
		PurchaseOrders: service.NewPurchaseOrderService(store, nil),
		Ready:          ready,
	}
}
