package postgres

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tradeloom/tradeloom/internal/domain/tenant"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// entityTable is a tenant-partitioned table. Entity statements can only be
// built through a scoped value, and scoped only accepts entityTable, so a
// business query without a tenant filter cannot be expressed in this package.
type entityTable string

const (
	tableCustomers      entityTable = "customers"
	tableSuppliers      entityTable = "suppliers"
	tableContacts       entityTable = "contacts"
	tablePlants         entityTable = "plants"
	tableCarriers       entityTable = "carriers"
	tablePurchaseOrders entityTable = "purchase_orders"
)

const tenantColumn = "tenant_id"

// scoped builds statements bound to one tenant. It holds no mutable state
// and is safe to share between goroutines.
type scoped struct {
	tenantID string
}

// scopeOf binds a builder to s. The zero Scope is rejected.
func scopeOf(s tenant.Scope) (scoped, error) {
	if err := s.Check(); err != nil {
		return scoped{}, err
	}
	return scoped{tenantID: s.TenantID()}, nil
}

// Select reads from t. alias qualifies the tenant filter when t is joined.
func (q scoped) Select(t entityTable, alias string, cols ...string) sq.SelectBuilder {
	from, col := string(t), tenantColumn
	if alias != "" {
		from = fmt.Sprintf("%s %s", t, alias)
		col = alias + "." + tenantColumn
	}
	return psql.Select(cols...).From(from).Where(sq.Eq{col: q.tenantID})
}

// LeftJoin joins t as alias on cond, restricted to the same tenant.
func (q scoped) LeftJoin(b sq.SelectBuilder, t entityTable, alias, cond string) sq.SelectBuilder {
	return b.LeftJoin(fmt.Sprintf("%s %s ON %s AND %s.%s = ?", t, alias, cond, alias, tenantColumn), q.tenantID)
}

// Insert writes one row into t. The tenant column is always set from the
// scope, overriding any value in values.
func (q scoped) Insert(t entityTable, values map[string]any) sq.InsertBuilder {
	row := make(map[string]any, len(values)+1)
	for k, v := range values {
		row[k] = v
	}
	row[tenantColumn] = q.tenantID
	return psql.Insert(string(t)).SetMap(row)
}

// Update modifies rows of t owned by the tenant. The tenant column can
// never be reassigned.
func (q scoped) Update(t entityTable, set map[string]any) sq.UpdateBuilder {
	row := make(map[string]any, len(set))
	for k, v := range set {
		if k == tenantColumn {
			continue
		}
		row[k] = v
	}
	return psql.Update(string(t)).SetMap(row).Where(sq.Eq{tenantColumn: q.tenantID})
}

// Delete removes rows of t owned by the tenant.
func (q scoped) Delete(t entityTable) sq.DeleteBuilder {
	return psql.Delete(string(t)).Where(sq.Eq{tenantColumn: q.tenantID})
}

// Exists builds a query returning one row when id exists in t for the tenant.
func (q scoped) Exists(t entityTable, id string) sq.SelectBuilder {
	return q.Select(t, "", "1").Where(sq.Eq{"id": id}).Limit(1)
}
