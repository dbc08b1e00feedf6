package compile

import (
	"fmt"
	"strings"

	"github.com/frameql/lazyframe/sql"
)

type orderKey struct {
	column     string
	descending bool
	nullsFirst bool
}

func (k orderKey) reversed() orderKey {
	return orderKey{k.column, !k.descending, !k.nullsFirst}
}

func (k orderKey) String() string {
	return orderingString(quoteIdent(k.column), k.descending, k.nullsFirst)
}

func orderingString(expr string, descending, nullsFirst bool) string {
	var sb strings.Builder
	sb.WriteString(expr)
	if descending {
		sb.WriteString(" DESC")
	} else {
		sb.WriteString(" ASC")
	}
	if nullsFirst {
		sb.WriteString(" NULLS FIRST")
	} else {
		sb.WriteString(" NULLS LAST")
	}
	return sb.String()
}

func orderByClause(keys []orderKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}

// relation is the lowered form of a plan node.
type relation struct {
	query  string
	schema sql.Schema
	hidden sql.PhysicalSchema
	keys   []orderKey
	// total is true when the keys order every row.
	total bool
}

// derive returns a relation with the same columns and ordering as r.
func (r *relation) derive(query string) *relation {
	return &relation{
		query:  query,
		schema: r.schema,
		hidden: append(sql.PhysicalSchema(nil), r.hidden...),
		keys:   append([]orderKey(nil), r.keys...),
		total:  r.total,
	}
}

func (r *relation) hiddenColumns() []string {
	return quoteAll(r.hidden.Names())
}

func (r *relation) visibleColumns() []string {
	return quoteAll(r.schema.Names())
}

// over returns the ORDER BY clause of a window following the row order of
// the relation, or an empty string if it has no order.
func (r *relation) over() string {
	if len(r.keys) == 0 {
		return ""
	}
	return "ORDER BY " + orderByClause(r.keys)
}

// compilation holds the state of a single compilation. Hidden column names
// are unique within a compilation.
type compilation struct {
	strict bool
	next   int
}

func (c *compilation) hiddenName() string {
	c.next++
	return fmt.Sprintf("__h%d", c.next)
}

// addKey adds a hidden column with the given SQL expression and uses it as
// the last ordering key of the relation. It returns the select item of the
// column.
func (c *compilation) addKey(r *relation, expr string, typ sql.Type, descending, nullsFirst bool) string {
	name := c.hiddenName()
	r.hidden = append(r.hidden, sql.PhysicalColumn{Name: name, Type: typ})
	r.keys = append(r.keys, orderKey{column: name, descending: descending, nullsFirst: nullsFirst})
	return alias(expr, name)
}
