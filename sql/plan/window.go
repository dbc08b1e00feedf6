package plan

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

// WindowOp applies a window operator to a column. The result overwrites a
// column or is appended as a new one.
type WindowOp struct {
	base
	UnaryNode
	ColumnID string
	Op       sql.WindowOp
	Window   sql.WindowSpec
	// OutputID is the column the result is written to. If empty, the input
	// column is overwritten.
	OutputID       string
	NeverSkipNulls bool
	// SkipReprojectUnsafe allows sharing the projection boundary with
	// sibling window operators over the same window.
	SkipReprojectUnsafe bool
}

type windowParams struct {
	ColumnID            string
	Op                  string
	Window              string
	OutputID            string
	NeverSkipNulls      bool
	SkipReprojectUnsafe bool
}

// NewWindowOp creates a new WindowOp node.
func NewWindowOp(
	columnID string,
	op sql.WindowOp,
	window sql.WindowSpec,
	outputID string,
	neverSkipNulls bool,
	skipReprojectUnsafe bool,
	child sql.Node,
) (*WindowOp, error) {
	input := child.Schema()
	for _, c := range window.GroupingKeys {
		if !input.Contains(c) {
			return nil, sql.ErrColumnNotFound.New(c, input.Names())
		}
	}
	for _, o := range window.Ordering {
		typ, err := o.Expr.Type(input)
		if err != nil {
			return nil, err
		}
		if !sql.IsOrderable(typ) {
			return nil, sql.ErrInvalidType.New(fmt.Sprintf("cannot order window by %s of type %s", o.Expr, typ))
		}
	}

	inputType, err := input.TypeOf(columnID)
	if err != nil {
		return nil, err
	}
	outputType, err := op.OutputType(inputType)
	if err != nil {
		return nil, err
	}

	var schema sql.Schema
	switch {
	case outputID == "":
		schema, err = input.UpdateType(columnID, outputType)
	case input.Contains(outputID):
		schema, err = input.UpdateType(outputID, outputType)
	default:
		schema, err = input.Append(sql.SchemaItem{ID: outputID, Type: outputType})
	}
	if err != nil {
		return nil, err
	}

	t := unary(child)
	t.schema = schema
	t.nonLocal = true
	t.varsIntroduced = 1
	t.relOps = 4
	if skipReprojectUnsafe {
		t.relOps = 0
	}

	n := &WindowOp{
		UnaryNode:           UnaryNode{child},
		ColumnID:            columnID,
		Op:                  op,
		Window:              window,
		OutputID:            outputID,
		NeverSkipNulls:      neverSkipNulls,
		SkipReprojectUnsafe: skipReprojectUnsafe,
	}
	params := windowParams{
		ColumnID:            columnID,
		Op:                  op.String(),
		Window:              window.String(),
		OutputID:            outputID,
		NeverSkipNulls:      neverSkipNulls,
		SkipReprojectUnsafe: skipReprojectUnsafe,
	}
	if err := n.init(n, "WindowOp", params, t); err != nil {
		return nil, err
	}
	return n, nil
}

// ResultID returns the column the result is written to.
func (n *WindowOp) ResultID() string {
	if n.OutputID == "" {
		return n.ColumnID
	}
	return n.OutputID
}

// WithChildren implements the sql.Node interface.
func (n *WindowOp) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewWindowOp(n.ColumnID, n.Op, n.Window, n.OutputID, n.NeverSkipNulls, n.SkipReprojectUnsafe, children[0])
}

func (n *WindowOp) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("WindowOp(%s(%s) OVER (%s) AS %s)", n.Op, n.ColumnID, n.Window, n.ResultID())
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}

// Reproject is a hint for the compiler to start a new projection. It
// changes nothing in the data.
type Reproject struct {
	base
	UnaryNode
}

// NewReproject creates a new Reproject node.
func NewReproject(child sql.Node) *Reproject {
	t := unary(child)
	t.varsIntroduced = 0
	t.relOps = 0

	n := &Reproject{UnaryNode: UnaryNode{child}}
	_ = n.init(n, "Reproject", nil, t)
	return n
}

// WithChildren implements the sql.Node interface.
func (n *Reproject) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewReproject(children[0]), nil
}

func (n *Reproject) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Reproject")
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
