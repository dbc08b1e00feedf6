package plan

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

// Concat stacks the rows of its children, in order.
type Concat struct {
	base
}

// NewConcat creates a new concat of the given nodes. There must be at least
// one, and all of them must have the same column types in the same
// positions. Output columns are named column_0, column_1, ...
func NewConcat(children ...sql.Node) (*Concat, error) {
	if len(children) == 0 {
		return nil, sql.ErrEmptyConcat.New()
	}

	first := children[0].Schema()
	ambiguous := false
	ordered := false
	for _, c := range children {
		if !c.Schema().TypesEqual(first) {
			return nil, sql.ErrConcatTypeMismatch.New(first.Types(), c.Schema().Types())
		}
		ambiguous = ambiguous || c.OrderAmbiguous()
		ordered = ordered || c.ExplicitlyOrdered()
	}

	schema := make(sql.Schema, len(first))
	for i, item := range first {
		schema[i] = sql.SchemaItem{ID: fmt.Sprintf("column_%d", i), Type: item.Type}
	}

	n := &Concat{}
	err := n.init(n, "Concat", nil, traits{
		schema:            schema,
		children:          append([]sql.Node(nil), children...),
		deterministic:     true,
		rowPreserving:     true,
		orderAmbiguous:    ambiguous,
		explicitlyOrdered: ordered,
		varsIntroduced:    len(schema) + OverheadVariables,
		relOps:            1,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *Concat) WithChildren(children ...sql.Node) (sql.Node, error) {
	return NewConcat(children...)
}

func (n *Concat) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Concat(%s)", n.schema)
	children := make([]string, len(n.children))
	for i, c := range n.children {
		children[i] = c.String()
	}
	_ = pr.WriteChildren(children...)
	return pr.String()
}
