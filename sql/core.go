package sql

import (
	"fmt"
	"io"
)

// Expression is a scalar expression evaluated against the rows of a node.
// Expressions are unbound: column references are resolved against the input
// schema when the expression is type-checked.
type Expression interface {
	fmt.Stringer
	// Type returns the output type of the expression for the given input
	// schema. It fails if a referenced column is not bound or if operand
	// types are invalid.
	Type(Schema) (Type, error)
	// Children returns the children expressions of this expression.
	Children() []Expression
	// WithChildren returns a copy of the expression with children replaced.
	WithChildren(...Expression) (Expression, error)
}

// Aggregation is an expression computed over a group of rows.
type Aggregation interface {
	Expression
	// Op returns the name of the aggregate operator.
	Op() string
}

// WindowOp is a unary operator applied over a window of rows. Aggregate
// operators are window operators too.
type WindowOp interface {
	fmt.Stringer
	// OutputType returns the type produced for the given input type.
	OutputType(Type) (Type, error)
}

// Node is an immutable node of the plan tree. Every property is computed
// once, when the node is built, from its own parameters and its children.
type Node interface {
	fmt.Stringer
	// Schema of the node.
	Schema() Schema
	// Children nodes.
	Children() []Node
	// WithChildren returns a copy of the node with its children replaced and
	// every other parameter preserved. It fails if the new children violate
	// the node invariants.
	WithChildren(...Node) (Node, error)

	// Deterministic is false if the node output cannot be reproduced.
	Deterministic() bool
	// RowPreserving is false if the output rows may differ from the input
	// rows.
	RowPreserving() bool
	// NonLocal is true if the node needs to see multiple rows at once.
	NonLocal() bool
	// OrderAmbiguous is true if the row order is not guaranteed to be
	// reproducible.
	OrderAmbiguous() bool
	// ExplicitlyOrdered is true if a user ordering is in force.
	ExplicitlyOrdered() bool

	// VariablesIntroduced is the number of new values created by the node.
	VariablesIntroduced() int
	// RelationOpsCreated is the number of relational operators the node
	// lowers to.
	RelationOpsCreated() int
	// Joins is true only for joins.
	Joins() bool

	// TotalVariables is the number of variables introduced by the tree.
	TotalVariables() int64
	// TotalRelationalOps is the number of relational operators in the tree.
	TotalRelationalOps() int64
	// TotalJoins is the number of joins in the tree.
	TotalJoins() int64
	// PlanningComplexity estimates the cost of compiling the tree.
	PlanningComplexity() int64

	// Hash is the structural hash of the tree rooted at this node.
	Hash() uint64
	// Roots returns the distinct source nodes of the tree.
	Roots() []Node
	// Session returns the id of the session owning the sources of the tree,
	// or the empty id if there is none.
	Session() SessionID
}

// Row is a tuple of values.
type Row []interface{}

// NewRow creates a row from the given values.
func NewRow(values ...interface{}) Row {
	row := make([]interface{}, len(values))
	copy(row, values)
	return row
}

// RowIter is an iterator that produces rows. Next returns io.EOF when there
// are no more rows.
type RowIter interface {
	Next() (Row, error)
	Close() error
}

// RowIterToRows converts a row iterator to a slice of rows.
func RowIterToRows(i RowIter) ([]Row, error) {
	var rows []Row
	for {
		row, err := i.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			_ = i.Close()
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, i.Close()
}

// RowsToRowIter creates a RowIter that iterates over the given rows.
func RowsToRowIter(rows ...Row) RowIter {
	return &sliceRowIter{rows: rows}
}

type sliceRowIter struct {
	rows []Row
	idx  int
}

func (i *sliceRowIter) Next() (Row, error) {
	if i.idx >= len(i.rows) {
		return nil, io.EOF
	}

	r := i.rows[i.idx]
	i.idx++
	return r.Copy(), nil
}

func (i *sliceRowIter) Close() error {
	i.rows = nil
	return nil
}

// ConvertRow converts every value of the row to the type of the matching
// schema column.
func ConvertRow(schema Schema, row Row) (Row, error) {
	if len(row) != len(schema) {
		return nil, ErrRowLength.New(len(row), len(schema))
	}

	result := make(Row, len(row))
	for i, v := range row {
		c, err := schema[i].Type.Convert(v)
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// NewConvertRowIter wraps an iterator so that its rows are converted to the
// given schema.
func NewConvertRowIter(schema Schema, iter RowIter) RowIter {
	return &convertRowIter{schema, iter}
}

type convertRowIter struct {
	schema Schema
	iter   RowIter
}

func (i *convertRowIter) Next() (Row, error) {
	row, err := i.iter.Next()
	if err != nil {
		return nil, err
	}
	return ConvertRow(i.schema, row)
}

func (i *convertRowIter) Close() error {
	return i.iter.Close()
}

// Copy creates a new row with the same values as the current one.
func (r Row) Copy() Row {
	return NewRow(r...)
}
