package plan

import (
	"fmt"
	"strings"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
)

// Assignment binds the result of an expression to an output column.
type Assignment struct {
	Expr sql.Expression
	ID   string
}

// NewAssignment creates a new assignment.
func NewAssignment(e sql.Expression, id string) Assignment {
	return Assignment{Expr: e, ID: id}
}

func (a Assignment) String() string {
	if c, ok := a.Expr.(sql.ColumnReferencer); ok && c.ColumnID() == a.ID {
		return a.ID
	}
	return fmt.Sprintf("%s AS %s", a.Expr, a.ID)
}

// Projection computes a new set of columns from the columns of its child.
// Only the assigned columns are part of its output.
type Projection struct {
	base
	UnaryNode
	Assignments []Assignment
}

type projectionParams struct {
	Assignments []string
}

// NewProjection creates a new projection. Every expression is type checked
// against the child schema.
func NewProjection(assignments []Assignment, child sql.Node) (*Projection, error) {
	input := child.Schema()
	schema := make(sql.Schema, len(assignments))
	params := projectionParams{Assignments: make([]string, len(assignments))}
	newVars := 0
	for i, a := range assignments {
		typ, err := a.Expr.Type(input)
		if err != nil {
			return nil, err
		}
		schema[i] = sql.SchemaItem{ID: a.ID, Type: typ}
		params.Assignments[i] = a.Expr.String() + " AS " + a.ID
		if !expression.IsIdentity(a.Expr) {
			newVars++
		}
	}

	t := unary(child)
	t.schema = schema
	t.varsIntroduced = newVars

	n := &Projection{UnaryNode: UnaryNode{child}, Assignments: append([]Assignment(nil), assignments...)}
	if err := n.init(n, "Projection", params, t); err != nil {
		return nil, err
	}
	return n, nil
}

// NewSelect creates a projection keeping only the given columns of the
// child, in the given order.
func NewSelect(columns []string, child sql.Node) (*Projection, error) {
	assignments := make([]Assignment, len(columns))
	for i, c := range columns {
		assignments[i] = NewAssignment(expression.NewColumnRef(c), c)
	}
	return NewProjection(assignments, child)
}

// WithChildren implements the sql.Node interface.
func (n *Projection) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewProjection(n.Assignments, children[0])
}

// Bindings returns the expression bound to every output column.
func (n *Projection) Bindings() map[string]sql.Expression {
	bindings := make(map[string]sql.Expression, len(n.Assignments))
	for _, a := range n.Assignments {
		bindings[a.ID] = a.Expr
	}
	return bindings
}

func (n *Projection) String() string {
	pr := sql.NewTreePrinter()
	items := make([]string, len(n.Assignments))
	for i, a := range n.Assignments {
		items[i] = a.String()
	}
	_ = pr.WriteNode("Projection(%s)", strings.Join(items, ", "))
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
