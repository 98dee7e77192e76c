package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain/plant"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

var plantColumns = []string{"id", "tenant_id", "name", "code", "address", "city", "country",
	"active", "created_at", "updated_at"}

func scanPlant(row scannable) (plant.Plant, error) {
	var p plant.Plant
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Code, &p.Address, &p.City, &p.Country,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListPlants(ctx context.Context, sc tenant.Scope) ([]plant.Plant, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	out, err := queryAll(ctx, s.pool, q.Select(tablePlants, "", plantColumns...).OrderBy("code"), scanPlant)
	if err != nil {
		return nil, mapErr(err, "list plants")
	}
	return out, nil
}

func (s *Store) GetPlant(ctx context.Context, sc tenant.Scope, id string) (*plant.Plant, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	p, err := queryOne(ctx, s.pool, q.Select(tablePlants, "", plantColumns...).Where(sq.Eq{"id": id}), scanPlant)
	if err != nil {
		return nil, mapErr(err, "get plant %s", id)
	}
	return &p, nil
}

func (s *Store) CreatePlant(ctx context.Context, sc tenant.Scope, req plant.CreateRequest) (*plant.Plant, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	b := q.Insert(tablePlants, map[string]any{
		"id":      uuid.NewString(),
		"name":    req.Name,
		"code":    req.Code,
		"address": req.Address,
		"city":    req.City,
		"country": req.Country,
	}).Suffix("RETURNING " + joinColumns(plantColumns))
	p, err := queryOne(ctx, s.pool, b, scanPlant)
	if err != nil {
		return nil, mapWriteErr(err, "create plant %s", req.Code)
	}
	return &p, nil
}

func (s *Store) UpdatePlant(ctx context.Context, sc tenant.Scope, p *plant.Plant) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	b := q.Update(tablePlants, map[string]any{
		"name":       p.Name,
		"address":    p.Address,
		"city":       p.City,
		"country":    p.Country,
		"active":     p.Active,
		"updated_at": p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID})
	return execExpectOne(ctx, s.pool, b, mapWriteErr, "update plant %s", p.ID)
}

func (s *Store) DeletePlant(ctx context.Context, sc tenant.Scope, id string) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	return execExpectOne(ctx, s.pool, q.Delete(tablePlants).Where(sq.Eq{"id": id}), mapDeleteErr, "delete plant %s", id)
}
