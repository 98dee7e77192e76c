package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain/supplier"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

var supplierColumns = []string{"id", "tenant_id", "name", "code", "email", "phone", "address",
	"city", "country", "tax_id", "payment_terms", "rating", "active", "created_at", "updated_at"}

func scanSupplier(row scannable) (supplier.Supplier, error) {
	var s supplier.Supplier
	var rating int16
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Code, &s.Email, &s.Phone, &s.Address,
		&s.City, &s.Country, &s.TaxID, &s.PaymentTerms, &rating, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	s.Rating = int(rating)
	return s, err
}

func (s *Store) ListSuppliers(ctx context.Context, sc tenant.Scope) ([]supplier.Supplier, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	out, err := queryAll(ctx, s.pool, q.Select(tableSuppliers, "", supplierColumns...).OrderBy("name"), scanSupplier)
	if err != nil {
		return nil, mapErr(err, "list suppliers")
	}
	return out, nil
}

func (s *Store) GetSupplier(ctx context.Context, sc tenant.Scope, id string) (*supplier.Supplier, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	sp, err := queryOne(ctx, s.pool, q.Select(tableSuppliers, "", supplierColumns...).Where(sq.Eq{"id": id}), scanSupplier)
	if err != nil {
		return nil, mapErr(err, "get supplier %s", id)
	}
	return &sp, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sc tenant.Scope, req supplier.CreateRequest) (*supplier.Supplier, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	b := q.Insert(tableSuppliers, map[string]any{
		"id":            uuid.NewString(),
		"name":          req.Name,
		"code":          req.Code,
		"email":         req.Email,
		"phone":         req.Phone,
		"address":       req.Address,
		"city":          req.City,
		"country":       req.Country,
		"tax_id":        req.TaxID,
		"payment_terms": req.PaymentTerms,
		"rating":        req.Rating,
	}).Suffix("RETURNING " + joinColumns(supplierColumns))
	sp, err := queryOne(ctx, s.pool, b, scanSupplier)
	if err != nil {
		return nil, mapWriteErr(err, "create supplier %s", req.Code)
	}
	return &sp, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sc tenant.Scope, sp *supplier.Supplier) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	sp.UpdatedAt = time.Now().UTC()
	b := q.Update(tableSuppliers, map[string]any{
		"name":          sp.Name,
		"email":         sp.Email,
		"phone":         sp.Phone,
		"address":       sp.Address,
		"city":          sp.City,
		"country":       sp.Country,
		"tax_id":        sp.TaxID,
		"payment_terms": sp.PaymentTerms,
		"rating":        sp.Rating,
		"active":        sp.Active,
		"updated_at":    sp.UpdatedAt,
	}).Where(sq.Eq{"id": sp.ID})
	return execExpectOne(ctx, s.pool, b, mapWriteErr, "update supplier %s", sp.ID)
}

func (s *Store) DeleteSupplier(ctx context.Context, sc tenant.Scope, id string) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	return execExpectOne(ctx, s.pool, q.Delete(tableSuppliers).Where(sq.Eq{"id": id}), mapDeleteErr, "delete supplier %s", id)
}
