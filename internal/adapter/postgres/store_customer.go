package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain/customer"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

var customerColumns = []string{"id", "tenant_id", "name", "code", "email", "phone", "address",
	"city", "country", "tax_id", "notes", "active", "created_at", "updated_at"}

func scanCustomer(row scannable) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Code, &c.Email, &c.Phone, &c.Address,
		&c.City, &c.Country, &c.TaxID, &c.Notes, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, sc tenant.Scope) ([]customer.Customer, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	out, err := queryAll(ctx, s.pool, q.Select(tableCustomers, "", customerColumns...).OrderBy("name"), scanCustomer)
	if err != nil {
		return nil, mapErr(err, "list customers")
	}
	return out, nil
}

func (s *Store) GetCustomer(ctx context.Context, sc tenant.Scope, id string) (*customer.Customer, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	c, err := queryOne(ctx, s.pool, q.Select(tableCustomers, "", customerColumns...).Where(sq.Eq{"id": id}), scanCustomer)
	if err != nil {
		return nil, mapErr(err, "get customer %s", id)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, sc tenant.Scope, req customer.CreateRequest) (*customer.Customer, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	b := q.Insert(tableCustomers, map[string]any{
		"id":      uuid.NewString(),
		"name":    req.Name,
		"code":    req.Code,
		"email":   req.Email,
		"phone":   req.Phone,
		"address": req.Address,
		"city":    req.City,
		"country": req.Country,
		"tax_id":  req.TaxID,
		"notes":   req.Notes,
	}).Suffix("RETURNING " + joinColumns(customerColumns))
	c, err := queryOne(ctx, s.pool, b, scanCustomer)
	if err != nil {
		return nil, mapWriteErr(err, "create customer %s", req.Code)
	}
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, sc tenant.Scope, c *customer.Customer) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	b := q.Update(tableCustomers, map[string]any{
		"name":       c.Name,
		"email":      c.Email,
		"phone":      c.Phone,
		"address":    c.Address,
		"city":       c.City,
		"country":    c.Country,
		"tax_id":     c.TaxID,
		"notes":      c.Notes,
		"active":     c.Active,
		"updated_at": c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID})
	return execExpectOne(ctx, s.pool, b, mapWriteErr, "update customer %s", c.ID)
}

func (s *Store) DeleteCustomer(ctx context.Context, sc tenant.Scope, id string) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	return execExpectOne(ctx, s.pool, q.Delete(tableCustomers).Where(sq.Eq{"id": id}), mapDeleteErr, "delete customer %s", id)
}
