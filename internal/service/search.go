package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	cfotel "github.com/tradeloom/tradeloom/internal/adapter/otel"
	"github.com/tradeloom/tradeloom/internal/domain/search"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/port/database"
)

// SearchService runs one scoped query per entity type and merges the
// groups into a single ordered list.
type SearchService struct {
	store   database.SearchStore
	limit   int
	metrics *cfotel.Metrics
}

// NewSearchService creates a search service returning at most limit hits
// per entity type. limit is clamped to search.MaxPerType.
func NewSearchService(store database.SearchStore, limit int) *SearchService {
	if limit <= 0 || limit > search.MaxPerType {
		limit = search.MaxPerType
	}
	return &SearchService{store: store, limit: limit}
}

// SetMetrics sets the metrics recorder.
func (s *SearchService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Search returns the hits for text within the scope.
func (s *SearchService) Search(ctx context.Context, sc tenant.Scope, text string) (*search.Response, error) {
	if err := sc.Check(); err != nil {
		return nil, err
	}
	q, err := search.NewQuery(text, s.limit)
	if err != nil {
		return nil, err
	}

	ctx, span := cfotel.StartSearchSpan(ctx, sc.TenantID())
	defer span.End()

	queries := map[search.Type]func(context.Context, tenant.Scope, search.Query) ([]search.Result, error){
		search.TypeCustomer: s.store.SearchCustomers,
		search.TypeSupplier: s.store.SearchSuppliers,
		search.TypeOrder:    s.store.SearchPurchaseOrders,
	}

	groups := make([][]search.Result, len(search.Types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range search.Types {
		run := queries[t]
		g.Go(func() error {
			res, err := run(gctx, sc, q)
			if err != nil {
				return fmt.Errorf("search %s: %w", t, err)
			}
			groups[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	byType := make(map[search.Type][]search.Result, len(groups))
	for i, t := range search.Types {
		byType[t] = groups[i]
	}
	results := search.Merge(byType, q.Limit)
	s.metrics.RecordSearch(ctx, len(results))

	return &search.Response{Query: q.Text, Results: results}, nil
}
