package plan

import (
	"fmt"
	"strings"

	"github.com/frameql/lazyframe/sql"
)

// OrderBy sorts the rows of its child. It's a marker for the compiler: no
// relational operation is created until the order is needed.
type OrderBy struct {
	base
	UnaryNode
	By []sql.OrderingExpression
}

type orderByParams struct {
	By []string
}

// NewOrderBy creates a new OrderBy node. Every sort key must be an orderable
// expression over the child columns.
func NewOrderBy(by []sql.OrderingExpression, child sql.Node) (*OrderBy, error) {
	schema := child.Schema()
	for _, o := range by {
		typ, err := o.Expr.Type(schema)
		if err != nil {
			return nil, err
		}
		if !sql.IsOrderable(typ) {
			return nil, sql.ErrInvalidType.New(fmt.Sprintf("cannot order by %s of type %s", o.Expr, typ))
		}
	}

	t := unary(child)
	t.explicitlyOrdered = true
	t.varsIntroduced = 0
	t.relOps = 0

	n := &OrderBy{UnaryNode: UnaryNode{child}, By: append([]sql.OrderingExpression(nil), by...)}
	if err := n.init(n, "OrderBy", orderByParams{orderingStrings(by)}, t); err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *OrderBy) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewOrderBy(n.By, children[0])
}

func (n *OrderBy) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("OrderBy(%s)", strings.Join(orderingStrings(n.By), ", "))
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}

// Reversed flips the order of the rows of its child.
type Reversed struct {
	base
	UnaryNode
}

// NewReversed creates a new Reversed node.
func NewReversed(child sql.Node) *Reversed {
	t := unary(child)
	t.varsIntroduced = 0
	t.relOps = 0

	n := &Reversed{UnaryNode: UnaryNode{child}}
	// unary nodes without parameters can only fail on the session check,
	// which the child already passed.
	_ = n.init(n, "Reversed", nil, t)
	return n
}

// WithChildren implements the sql.Node interface.
func (n *Reversed) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewReversed(children[0]), nil
}

func (n *Reversed) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Reversed")
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
