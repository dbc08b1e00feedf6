package analyzer

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
	"github.com/frameql/lazyframe/sql/plan"
)

// OffsetsID returns the id of the offsets column promoted on top of node. It
// depends only on the structure of node, so plans derived twice from the
// same node are identical.
func OffsetsID(node sql.Node) string {
	return fmt.Sprintf("offsets_%x", node.Hash())
}

// HeadPlan returns a plan with the first n rows of node: offsets are
// promoted, filtered and then dropped again.
func HeadPlan(node sql.Node, n int64) (sql.Node, error) {
	offsets := OffsetsID(node)

	promoted, err := plan.NewPromoteOffsets(offsets, node)
	if err != nil {
		return nil, err
	}

	filtered, err := plan.NewFilter(
		expression.NewLessThan(
			expression.NewColumnRef(offsets),
			expression.NewLiteral(n, sql.Int64),
		),
		promoted,
	)
	if err != nil {
		return nil, err
	}

	return plan.NewSelect(node.Schema().Names(), filtered)
}

// RowCountPlan returns a plan producing a single row with the number of rows
// of node.
func RowCountPlan(node sql.Node) sql.Node {
	return plan.NewRowCount(node)
}
