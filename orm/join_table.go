package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mickamy/manythrough/scope"
)

// Pluck reads a single column from table, filtered and ordered by the
// given scopes, and scans every value into V.
//
//	ids, err := orm.Pluck[int64](ctx, db, "hospital_doctors", "id",
//	    scope.Eq("hospital_id", 7), scope.OrderBy("id"))
func Pluck[V any](ctx context.Context, db Querier, table, column string, scopes ...scope.Scope) ([]V, error) {
	p := &pluck{}
	for _, s := range scopes {
		s.Apply(p)
	}

	d := db.dialect()
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", d.QuoteIdent(column), d.QuoteIdent(table))
	args := appendWhere(&b, p.wheres)
	if len(p.orderBys) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(p.orderBys, ", "))
	}

	rows, err := db.QueryContext(ctx, rewritePlaceholders(d, b.String()), args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()

	values := []V{}
	for rows.Next() {
		var v V
		if err := rows.Scan(&v); err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		values = append(values, v)
	}
	return values, rows.Err() //nolint:wrapcheck // pass through
}

// pluck collects scope fragments for Pluck.
type pluck struct {
	wheres   []whereClause
	orderBys []string
}

func (p *pluck) ApplyWhere(clause string, args []any) {
	p.wheres = append(p.wheres, whereClause{clause, args})
}

func (p *pluck) ApplyOrderBy(clause string) {
	p.orderBys = append(p.orderBys, clause)
}

// rewritePlaceholders converts ? to dialect-specific placeholders ($1, $2, …).
func rewritePlaceholders(d Dialect, query string) string {
	if _, ok := d.(mysqlDialect); ok {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	idx := 1
	for i := range len(query) {
		if query[i] == '?' {
			b.WriteString(d.Placeholder(idx))
			idx++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
