package compile

import (
	"fmt"
	"strings"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
	"github.com/frameql/lazyframe/sql/expression/function/aggregation"
	"github.com/frameql/lazyframe/sql/plan"
)

var aggregateFunctions = map[string]string{
	"sum":       "SUM",
	"mean":      "AVG",
	"min":       "MIN",
	"max":       "MAX",
	"count":     "COUNT",
	"any_value": "MIN",
}

func aggregateExpr(agg sql.Aggregation) (string, error) {
	switch agg := agg.(type) {
	case *aggregation.Size:
		return "COUNT(*)", nil
	case *aggregation.Unary:
		arg, err := expr(agg.Child)
		if err != nil {
			return "", err
		}
		fn, ok := aggregateFunctions[agg.Op()]
		if !ok {
			return "", ErrUnsupportedExpression.New(agg, agg)
		}
		return fmt.Sprintf("%s(%s)", fn, arg), nil
	default:
		return "", ErrUnsupportedExpression.New(agg, agg)
	}
}

const wholeFrame = "ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING"

func (c *compilation) windowOp(n *plan.WindowOp) (*relation, error) {
	child, err := c.lower(n.Child)
	if err != nil {
		return nil, err
	}

	input := quoteIdent(n.ColumnID)
	value, err := windowValue(n, input, child)
	if err != nil {
		return nil, err
	}

	if aggregation.IsAggregate(n.Op) {
		if n.Window.MinPeriods > 0 {
			window, err := windowClause(n.Window, child, n.Window.Bounds != nil, true)
			if err != nil {
				return nil, err
			}
			value = fmt.Sprintf(
				"CASE WHEN COUNT(%s) OVER (%s) < %d THEN NULL ELSE %s END",
				input, window, n.Window.MinPeriods, value,
			)
		}
		if !n.NeverSkipNulls {
			value = fmt.Sprintf("CASE WHEN %s IS NULL THEN NULL ELSE %s END", input, value)
		}
	}

	result := c.hiddenName()
	inner := selectFrom([]string{"*", alias(value, result)}, child.query)

	r := child.derive("")
	r.schema = n.Schema()
	output := n.ResultID()
	cols := make([]string, 0, len(r.schema)+len(r.hidden))
	for _, item := range r.schema {
		if item.ID == output {
			cols = append(cols, alias(quoteIdent(result), item.ID))
		} else {
			cols = append(cols, quoteIdent(item.ID))
		}
	}
	cols = append(cols, r.hiddenColumns()...)
	r.query = selectFrom(cols, inner)
	return r, nil
}

// windowValue returns the window function call computing the operator.
func windowValue(n *plan.WindowOp, input string, child *relation) (string, error) {
	switch op := n.Op.(type) {
	case aggregation.Shift:
		if op.Periods == 0 {
			return input, nil
		}
		window, err := windowClause(n.Window, child, true, false)
		if err != nil {
			return "", err
		}
		return shifted(input, op.Periods, window), nil
	case aggregation.Diff:
		if op.Periods == 0 {
			return fmt.Sprintf("(%s - %s)", input, input), nil
		}
		window, err := windowClause(n.Window, child, true, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s - %s)", input, shifted(input, op.Periods, window)), nil
	}

	switch name := n.Op.String(); name {
	case "rank", "dense_rank":
		spec := n.Window
		spec.Ordering = append([]sql.OrderingExpression{{Expr: expression.NewColumnRef(n.ColumnID)}}, spec.Ordering...)
		window, err := windowClause(spec, child, false, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s() OVER (%s)", strings.ToUpper(name), window), nil
	case "first", "last":
		window, err := windowClause(n.Window, child, true, true)
		if err != nil {
			return "", err
		}
		fn := "FIRST_VALUE"
		if name == "last" {
			fn = "LAST_VALUE"
		}
		return fmt.Sprintf("%s(%s) OVER (%s)", fn, input, window), nil
	default:
		fn, ok := aggregateFunctions[name]
		if !ok || !aggregation.IsAggregate(n.Op) {
			return "", ErrUnsupportedExpression.New(n.Op, n.Op)
		}
		window, err := windowClause(n.Window, child, n.Window.Bounds != nil, true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s) OVER (%s)", fn, input, window), nil
	}
}

func shifted(input string, periods int, window string) string {
	if periods > 0 {
		return fmt.Sprintf("LAG(%s, %d) OVER (%s)", input, periods, window)
	}
	return fmt.Sprintf("LEAD(%s, %d) OVER (%s)", input, -periods, window)
}

// windowClause writes the window definition. With ordered set, a window
// with no explicit ordering follows the order of the rows. With framed set,
// the frame is written, spanning the whole partition when the window has
// no bounds.
func windowClause(spec sql.WindowSpec, child *relation, ordered, framed bool) (string, error) {
	var parts []string
	if len(spec.GroupingKeys) > 0 {
		parts = append(parts, "PARTITION BY "+strings.Join(quoteAll(spec.GroupingKeys), ", "))
	}

	hasOrder := false
	switch {
	case len(spec.Ordering) > 0:
		keys := make([]string, len(spec.Ordering))
		for i, o := range spec.Ordering {
			e, err := expr(o.Expr)
			if err != nil {
				return "", err
			}
			keys[i] = orderingString(e, o.Descending, o.NullsFirst)
		}
		parts = append(parts, "ORDER BY "+strings.Join(keys, ", "))
		hasOrder = true
	case ordered && len(child.keys) > 0:
		parts = append(parts, child.over())
		hasOrder = true
	}

	if framed {
		switch {
		case spec.Bounds != nil:
			parts = append(parts, spec.Bounds.String())
		case hasOrder:
			parts = append(parts, wholeFrame)
		}
	}

	return strings.Join(parts, " "), nil
}
