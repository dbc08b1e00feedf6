package sql

import (
	"fmt"
	"strings"
)

// WindowBounds limits a window to a range of rows around the current row.
// A nil bound is unbounded.
type WindowBounds struct {
	Preceding *int
	Following *int
}

// RowsBetween creates window bounds. A negative value means unbounded.
func RowsBetween(preceding, following int) *WindowBounds {
	b := &WindowBounds{}
	if preceding >= 0 {
		p := preceding
		b.Preceding = &p
	}
	if following >= 0 {
		f := following
		b.Following = &f
	}
	return b
}

func (b *WindowBounds) String() string {
	if b == nil {
		return "unbounded"
	}
	bound := func(v *int, dir string) string {
		if v == nil {
			return "UNBOUNDED " + dir
		}
		if *v == 0 {
			return "CURRENT ROW"
		}
		return fmt.Sprintf("%d %s", *v, dir)
	}
	return fmt.Sprintf("ROWS BETWEEN %s AND %s", bound(b.Preceding, "PRECEDING"), bound(b.Following, "FOLLOWING"))
}

// WindowSpec describes the rows a window operator is computed over.
type WindowSpec struct {
	GroupingKeys []string
	Ordering     []OrderingExpression
	// Bounds is nil for a window spanning the whole partition.
	Bounds *WindowBounds
	// MinPeriods is the minimum number of non null input values needed to
	// produce a non null output.
	MinPeriods int
}

// ReferencedColumns returns the columns used by the window definition.
func (w WindowSpec) ReferencedColumns() []string {
	cols := append([]string{}, w.GroupingKeys...)
	for _, o := range w.Ordering {
		cols = append(cols, ColumnsOf(o.Expr)...)
	}
	return cols
}

func (w WindowSpec) String() string {
	var parts []string
	if len(w.GroupingKeys) > 0 {
		parts = append(parts, "PARTITION BY "+strings.Join(w.GroupingKeys, ", "))
	}
	if len(w.Ordering) > 0 {
		keys := make([]string, len(w.Ordering))
		for i, o := range w.Ordering {
			keys[i] = o.String()
		}
		parts = append(parts, "ORDER BY "+strings.Join(keys, ", "))
	}
	if w.Bounds != nil {
		parts = append(parts, w.Bounds.String())
	}
	if w.MinPeriods > 0 {
		parts = append(parts, fmt.Sprintf("MIN_PERIODS %d", w.MinPeriods))
	}
	return strings.Join(parts, " ")
}
