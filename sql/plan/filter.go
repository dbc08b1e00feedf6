package plan

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

// Filter skips rows that don't match a certain expression.
type Filter struct {
	base
	UnaryNode
	Predicate sql.Expression
}

type filterParams struct {
	Predicate string
}

// NewFilter creates a new filter node. The predicate must be a boolean
// expression over the child columns.
func NewFilter(predicate sql.Expression, child sql.Node) (*Filter, error) {
	typ, err := predicate.Type(child.Schema())
	if err != nil {
		return nil, err
	}
	if !typ.Equals(sql.Boolean) {
		return nil, sql.ErrInvalidType.New(fmt.Sprintf("filter predicate %s is %s", predicate, typ))
	}

	t := unary(child)
	t.rowPreserving = false
	t.varsIntroduced = 1

	n := &Filter{UnaryNode: UnaryNode{child}, Predicate: predicate}
	if err := n.init(n, "Filter", filterParams{predicate.String()}, t); err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *Filter) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewFilter(n.Predicate, children[0])
}

func (n *Filter) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Filter(%s)", n.Predicate)
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
