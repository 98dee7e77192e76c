package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain/contact"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

var contactColumns = []string{"id", "tenant_id", "first_name", "last_name", "email", "phone",
	"position", "customer_id", "supplier_id", "created_at", "updated_at"}

func scanContact(row scannable) (contact.Contact, error) {
	var c contact.Contact
	err := row.Scan(&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Position, &c.CustomerID, &c.SupplierID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListContacts(ctx context.Context, sc tenant.Scope) ([]contact.Contact, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	out, err := queryAll(ctx, s.pool, q.Select(tableContacts, "", contactColumns...).OrderBy("last_name", "first_name"), scanContact)
	if err != nil {
		return nil, mapErr(err, "list contacts")
	}
	return out, nil
}

func (s *Store) GetContact(ctx context.Context, sc tenant.Scope, id string) (*contact.Contact, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	c, err := queryOne(ctx, s.pool, q.Select(tableContacts, "", contactColumns...).Where(sq.Eq{"id": id}), scanContact)
	if err != nil {
		return nil, mapErr(err, "get contact %s", id)
	}
	return &c, nil
}

// CreateContact relies on the composite (tenant_id, customer_id) and
// (tenant_id, supplier_id) foreign keys: an organization id from another
// tenant fails as not found.
func (s *Store) CreateContact(ctx context.Context, sc tenant.Scope, req contact.CreateRequest) (*contact.Contact, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	b := q.Insert(tableContacts, map[string]any{
		"id":          uuid.NewString(),
		"first_name":  req.FirstName,
		"last_name":   req.LastName,
		"email":       req.Email,
		"phone":       req.Phone,
		"position":    req.Position,
		"customer_id": req.CustomerID,
		"supplier_id": req.SupplierID,
	}).Suffix("RETURNING " + joinColumns(contactColumns))
	c, err := queryOne(ctx, s.pool, b, scanContact)
	if err != nil {
		return nil, mapWriteErr(err, "create contact")
	}
	return &c, nil
}

func (s *Store) UpdateContact(ctx context.Context, sc tenant.Scope, c *contact.Contact) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	b := q.Update(tableContacts, map[string]any{
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
		"position":   c.Position,
		"updated_at": c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID})
	return execExpectOne(ctx, s.pool, b, mapWriteErr, "update contact %s", c.ID)
}

func (s *Store) DeleteContact(ctx context.Context, sc tenant.Scope, id string) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	return execExpectOne(ctx, s.pool, q.Delete(tableContacts).Where(sq.Eq{"id": id}), mapDeleteErr, "delete contact %s", id)
}
