package plan

import (
	"github.com/frameql/lazyframe/sql"
)

// PromoteOffsets prepends a column holding the offset of every row, 0 for
// the first row, in the order of its child.
type PromoteOffsets struct {
	base
	UnaryNode
	ColumnID string
}

type promoteOffsetsParams struct {
	ColumnID string
}

// NewPromoteOffsets creates a new PromoteOffsets node.
func NewPromoteOffsets(columnID string, child sql.Node) (*PromoteOffsets, error) {
	schema, err := child.Schema().Prepend(sql.SchemaItem{ID: columnID, Type: sql.Int64})
	if err != nil {
		return nil, err
	}

	t := unary(child)
	t.schema = schema
	t.nonLocal = true
	t.varsIntroduced = 1
	t.relOps = 2

	n := &PromoteOffsets{UnaryNode: UnaryNode{child}, ColumnID: columnID}
	if err := n.init(n, "PromoteOffsets", promoteOffsetsParams{columnID}, t); err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *PromoteOffsets) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewPromoteOffsets(n.ColumnID, children[0])
}

func (n *PromoteOffsets) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("PromoteOffsets(%s)", n.ColumnID)
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
