package sql

import (
	"sort"
	"strings"
)

// OrderingExpression is a single sort key.
type OrderingExpression struct {
	Expr       Expression
	Descending bool
	// NullsFirst places null values before every other value. By default
	// nulls sort last.
	NullsFirst bool
}

// NewOrderingExpression creates an ascending, nulls last sort key.
func NewOrderingExpression(e Expression) OrderingExpression {
	return OrderingExpression{Expr: e}
}

// Reversed returns the sort key with both direction and null placement
// flipped.
func (o OrderingExpression) Reversed() OrderingExpression {
	return OrderingExpression{
		Expr:       o.Expr,
		Descending: !o.Descending,
		NullsFirst: !o.NullsFirst,
	}
}

func (o OrderingExpression) String() string {
	var sb strings.Builder
	sb.WriteString(o.Expr.String())
	if o.Descending {
		sb.WriteString(" DESC")
	} else {
		sb.WriteString(" ASC")
	}
	if o.NullsFirst {
		sb.WriteString(" NULLS FIRST")
	} else {
		sb.WriteString(" NULLS LAST")
	}
	return sb.String()
}

// RowOrdering is the order of the rows of a relation.
type RowOrdering struct {
	Keys []OrderingExpression
	// Total is true when the keys uniquely determine the order of every row.
	Total bool
}

// ReferencedColumns returns the sorted, distinct columns used by the
// ordering keys.
func (r *RowOrdering) ReferencedColumns() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, k := range r.Keys {
		for _, c := range ColumnsOf(k.Expr) {
			seen[c] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// IsOffsetOrdering returns the offset column if the ordering is the total
// ordering of a single offset column.
func (r *RowOrdering) IsOffsetOrdering() (string, bool) {
	if r == nil || !r.Total || len(r.Keys) != 1 {
		return "", false
	}
	k := r.Keys[0]
	c, ok := k.Expr.(ColumnReferencer)
	if !ok || k.Descending {
		return "", false
	}
	return c.ColumnID(), true
}

// Reversed returns the ordering in the opposite direction.
func (r *RowOrdering) Reversed() *RowOrdering {
	if r == nil {
		return nil
	}
	keys := make([]OrderingExpression, len(r.Keys))
	for i, k := range r.Keys {
		keys[i] = k.Reversed()
	}
	return &RowOrdering{Keys: keys, Total: r.Total}
}

func (r *RowOrdering) String() string {
	if r == nil {
		return "none"
	}
	keys := make([]string, len(r.Keys))
	for i, k := range r.Keys {
		keys[i] = k.String()
	}
	s := strings.Join(keys, ", ")
	if r.Total {
		s += " (total)"
	}
	return s
}

// ColumnReferencer is an expression that is a plain reference to a column.
type ColumnReferencer interface {
	Expression
	ColumnID() string
}

// ColumnsOf returns the columns referenced anywhere in the expression, in
// order of appearance and possibly repeated.
func ColumnsOf(e Expression) []string {
	if c, ok := e.(ColumnReferencer); ok {
		return []string{c.ColumnID()}
	}
	var cols []string
	for _, child := range e.Children() {
		cols = append(cols, ColumnsOf(child)...)
	}
	return cols
}
