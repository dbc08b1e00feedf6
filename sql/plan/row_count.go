package plan

import (
	"github.com/frameql/lazyframe/sql"
)

// RowCountColumn is the column produced by a RowCount node.
const RowCountColumn = "count"

// RowCount produces a single row with the number of rows of its child.
type RowCount struct {
	base
	UnaryNode
}

// NewRowCount creates a new RowCount node.
func NewRowCount(child sql.Node) *RowCount {
	t := unary(child)
	t.schema = sql.Schema{{ID: RowCountColumn, Type: sql.Int64}}
	t.rowPreserving = false
	t.nonLocal = true
	t.explicitlyOrdered = false
	t.varsIntroduced = 1

	n := &RowCount{UnaryNode: UnaryNode{child}}
	_ = n.init(n, "RowCount", nil, t)
	return n
}

// WithChildren implements the sql.Node interface.
func (n *RowCount) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewRowCount(children[0]), nil
}

func (n *RowCount) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("RowCount")
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
