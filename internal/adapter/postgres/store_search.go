package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tradeloom/tradeloom/internal/domain/search"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

// Each search runs through the same scoped builder as the CRUD queries and
// is capped with LIMIT before results leave the database.

func (s *Store) SearchCustomers(ctx context.Context, sc tenant.Scope, q search.Query) ([]search.Result, error) {
	b, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	p := q.Pattern()
	sel := b.Select(tableCustomers, "", "id", "name", "code", "city").
		Where(sq.Or{sq.ILike{"name": p}, sq.ILike{"code": p}, sq.ILike{"email": p}}).
		OrderBy("name").Limit(uint64(q.Limit))
	out, err := queryAll(ctx, s.pool, sel, func(row scannable) (search.Result, error) {
		var r search.Result
		var code, city string
		err := row.Scan(&r.ID, &r.Title, &code, &city)
		r.Type = search.TypeCustomer
		r.Subtitle = subtitle(code, city)
		r.URL = "/customers/" + r.ID
		return r, err
	})
	if err != nil {
		return nil, mapErr(err, "search customers")
	}
	return out, nil
}

func (s *Store) SearchSuppliers(ctx context.Context, sc tenant.Scope, q search.Query) ([]search.Result, error) {
	b, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	p := q.Pattern()
	sel := b.Select(tableSuppliers, "", "id", "name", "code", "city").
		Where(sq.Or{sq.ILike{"name": p}, sq.ILike{"code": p}, sq.ILike{"email": p}}).
		OrderBy("name").Limit(uint64(q.Limit))
	out, err := queryAll(ctx, s.pool, sel, func(row scannable) (search.Result, error) {
		var r search.Result
		var code, city string
		err := row.Scan(&r.ID, &r.Title, &code, &city)
		r.Type = search.TypeSupplier
		r.Subtitle = subtitle(code, city)
		r.URL = "/suppliers/" + r.ID
		return r, err
	})
	if err != nil {
		return nil, mapErr(err, "search suppliers")
	}
	return out, nil
}

func (s *Store) SearchPurchaseOrders(ctx context.Context, sc tenant.Scope, q search.Query) ([]search.Result, error) {
	b, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	p := q.Pattern()
	sel := b.Select(tablePurchaseOrders, "po", "po.id", "po.number", "po.status", "COALESCE(s.name, '')")
	sel = b.LeftJoin(sel, tableSuppliers, "s", "s.id = po.supplier_id").
		Where(sq.Or{sq.ILike{"po.number": p}, sq.ILike{"s.name": p}}).
		OrderBy("po.order_date DESC", "po.number").Limit(uint64(q.Limit))
	out, err := queryAll(ctx, s.pool, sel, func(row scannable) (search.Result, error) {
		var r search.Result
		var status, supplierName string
		err := row.Scan(&r.ID, &r.Title, &status, &supplierName)
		r.Type = search.TypeOrder
		r.Subtitle = subtitle(supplierName, status)
		r.URL = "/purchase-orders/" + r.ID
		return r, err
	})
	if err != nil {
		return nil, mapErr(err, "search purchase orders")
	}
	return out, nil
}

func subtitle(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return fmt.Sprintf("%s · %s", a, b)
	}
}
