package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain/carrier"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

var carrierColumns = []string{"id", "tenant_id", "name", "scac", "mode", "email", "phone",
	"active", "created_at", "updated_at"}

func scanCarrier(row scannable) (carrier.Carrier, error) {
	var c carrier.Carrier
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.SCAC, &c.Mode, &c.Email, &c.Phone,
		&c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCarriers(ctx context.Context, sc tenant.Scope) ([]carrier.Carrier, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	out, err := queryAll(ctx, s.pool, q.Select(tableCarriers, "", carrierColumns...).OrderBy("name"), scanCarrier)
	if err != nil {
		return nil, mapErr(err, "list carriers")
	}
	return out, nil
}

func (s *Store) GetCarrier(ctx context.Context, sc tenant.Scope, id string) (*carrier.Carrier, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	c, err := queryOne(ctx, s.pool, q.Select(tableCarriers, "", carrierColumns...).Where(sq.Eq{"id": id}), scanCarrier)
	if err != nil {
		return nil, mapErr(err, "get carrier %s", id)
	}
	return &c, nil
}

func (s *Store) CreateCarrier(ctx context.Context, sc tenant.Scope, req carrier.CreateRequest) (*carrier.Carrier, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	b := q.Insert(tableCarriers, map[string]any{
		"id":    uuid.NewString(),
		"name":  req.Name,
		"scac":  req.SCAC,
		"mode":  string(req.Mode),
		"email": req.Email,
		"phone": req.Phone,
	}).Suffix("RETURNING " + joinColumns(carrierColumns))
	c, err := queryOne(ctx, s.pool, b, scanCarrier)
	if err != nil {
		return nil, mapWriteErr(err, "create carrier %s", req.Name)
	}
	return &c, nil
}

func (s *Store) UpdateCarrier(ctx context.Context, sc tenant.Scope, c *carrier.Carrier) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	b := q.Update(tableCarriers, map[string]any{
		"name":       c.Name,
		"mode":       string(c.Mode),
		"email":      c.Email,
		"phone":      c.Phone,
		"active":     c.Active,
		"updated_at": c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID})
	return execExpectOne(ctx, s.pool, b, mapWriteErr, "update carrier %s", c.ID)
}

func (s *Store) DeleteCarrier(ctx context.Context, sc tenant.Scope, id string) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	return execExpectOne(ctx, s.pool, q.Delete(tableCarriers).Where(sq.Eq{"id": id}), mapDeleteErr, "delete carrier %s", id)
}
