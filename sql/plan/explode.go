package plan

import (
	"strings"

	"github.com/frameql/lazyframe/sql"
)

// Explode expands array columns into one row per element. When several
// columns are exploded, their elements are zipped by position.
type Explode struct {
	base
	UnaryNode
	Columns []string
}

type explodeParams struct {
	Columns []string
}

// NewExplode creates a new Explode node. Every column must be an array.
func NewExplode(columns []string, child sql.Node) (*Explode, error) {
	schema := child.Schema()
	for _, c := range columns {
		typ, err := schema.TypeOf(c)
		if err != nil {
			return nil, err
		}
		arr, ok := typ.(sql.ArrayType)
		if !ok {
			return nil, sql.ErrNotArrayType.New(c, typ)
		}
		if schema, err = schema.UpdateType(c, arr.Elem); err != nil {
			return nil, err
		}
	}

	t := unary(child)
	t.schema = schema
	t.rowPreserving = false
	t.varsIntroduced = len(columns) + 1
	t.relOps = 3

	cols := append([]string(nil), columns...)
	n := &Explode{UnaryNode: UnaryNode{child}, Columns: cols}
	if err := n.init(n, "Explode", explodeParams{cols}, t); err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *Explode) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewExplode(n.Columns, children[0])
}

func (n *Explode) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Explode(%s)", strings.Join(n.Columns, ", "))
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
