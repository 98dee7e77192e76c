package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/tradeloom/tradeloom/internal/domain/purchaseorder"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

var purchaseOrderColumns = []string{"id", "tenant_id", "number", "supplier_id", "customer_id",
	"plant_id", "carrier_id", "status", "order_date", "expected_date", "currency", "total_cents",
	"notes", "created_at", "updated_at"}

func scanPurchaseOrder(row scannable) (purchaseorder.PurchaseOrder, error) {
	var o purchaseorder.PurchaseOrder
	err := row.Scan(&o.ID, &o.TenantID, &o.Number, &o.SupplierID, &o.CustomerID,
		&o.PlantID, &o.CarrierID, &o.Status, &o.OrderDate, &o.ExpectedDate, &o.Currency, &o.TotalCents,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (s *Store) ListPurchaseOrders(ctx context.Context, sc tenant.Scope) ([]purchaseorder.PurchaseOrder, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	b := q.Select(tablePurchaseOrders, "", purchaseOrderColumns...).OrderBy("order_date DESC", "number")
	out, err := queryAll(ctx, s.pool, b, scanPurchaseOrder)
	if err != nil {
		return nil, mapErr(err, "list purchase orders")
	}
	return out, nil
}

func (s *Store) GetPurchaseOrder(ctx context.Context, sc tenant.Scope, id string) (*purchaseorder.PurchaseOrder, error) {
	q, err := scopeOf(sc)
	if err != nil {
		return nil, err
	}
	b := q.Select(tablePurchaseOrders, "", purchaseOrderColumns...).Where(sq.Eq{"id": id})
	o, err := queryOne(ctx, s.pool, b, scanPurchaseOrder)
	if err != nil {
		return nil, mapErr(err, "get purchase order %s", id)
	}
	return &o, nil
}

// CreatePurchaseOrder inserts o. References are checked by composite
// foreign keys, so ids from another tenant are rejected as not found.
func (s *Store) CreatePurchaseOrder(ctx context.Context, sc tenant.Scope, o *purchaseorder.PurchaseOrder) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	b := q.Insert(tablePurchaseOrders, map[string]any{
		"id":            o.ID,
		"number":        o.Number,
		"supplier_id":   o.SupplierID,
		"customer_id":   o.CustomerID,
		"plant_id":      o.PlantID,
		"carrier_id":    o.CarrierID,
		"status":        string(o.Status),
		"order_date":    o.OrderDate,
		"expected_date": o.ExpectedDate,
		"currency":      o.Currency,
		"total_cents":   o.TotalCents,
		"notes":         o.Notes,
	}).Suffix("RETURNING " + joinColumns(purchaseOrderColumns))
	created, err := queryOne(ctx, s.pool, b, scanPurchaseOrder)
	if err != nil {
		return mapWriteErr(err, "create purchase order %s", o.Number)
	}
	*o = created
	return nil
}

func (s *Store) UpdatePurchaseOrder(ctx context.Context, sc tenant.Scope, o *purchaseorder.PurchaseOrder) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	b := q.Update(tablePurchaseOrders, map[string]any{
		"customer_id":   o.CustomerID,
		"plant_id":      o.PlantID,
		"carrier_id":    o.CarrierID,
		"status":        string(o.Status),
		"expected_date": o.ExpectedDate,
		"total_cents":   o.TotalCents,
		"notes":         o.Notes,
		"updated_at":    o.UpdatedAt,
	}).Where(sq.Eq{"id": o.ID})
	return execExpectOne(ctx, s.pool, b, mapWriteErr, "update purchase order %s", o.ID)
}

func (s *Store) DeletePurchaseOrder(ctx context.Context, sc tenant.Scope, id string) error {
	q, err := scopeOf(sc)
	if err != nil {
		return err
	}
	return execExpectOne(ctx, s.pool, q.Delete(tablePurchaseOrders).Where(sq.Eq{"id": id}), mapDeleteErr, "delete purchase order %s", id)
}
