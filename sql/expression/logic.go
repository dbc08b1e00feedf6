package expression

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

func booleanOperands(schema sql.Schema, exprs ...sql.Expression) (sql.Type, error) {
	for _, e := range exprs {
		t, err := e.Type(schema)
		if err != nil {
			return nil, err
		}
		if !t.Equals(sql.Boolean) {
			return nil, sql.ErrInvalidType.New(fmt.Sprintf("%s is %s, expected %s", e, t, sql.Boolean))
		}
	}
	return sql.Boolean, nil
}

// And checks whether two expressions are true.
type And struct {
	BinaryExpression
}

// NewAnd creates a new And expression.
func NewAnd(left, right sql.Expression) sql.Expression {
	return &And{BinaryExpression{Left: left, Right: right}}
}

// JoinAnd joins several expressions with And. Nil expressions are skipped,
// and nil is returned when there is nothing to join.
func JoinAnd(exprs ...sql.Expression) sql.Expression {
	var result sql.Expression
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if result == nil {
			result = e
			continue
		}
		result = NewAnd(result, e)
	}
	return result
}

// SplitConjunction breaks an expression into the list of expressions joined
// by And at its top level.
func SplitConjunction(e sql.Expression) []sql.Expression {
	and, ok := e.(*And)
	if !ok {
		return []sql.Expression{e}
	}

	return append(
		SplitConjunction(and.Left),
		SplitConjunction(and.Right)...,
	)
}

// Type implements the Expression interface.
func (a *And) Type(schema sql.Schema) (sql.Type, error) {
	return booleanOperands(schema, a.Left, a.Right)
}

// WithChildren implements the Expression interface.
func (a *And) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(a, children, 2); err != nil {
		return nil, err
	}
	return NewAnd(children[0], children[1]), nil
}

func (a *And) String() string {
	return fmt.Sprintf("(%s AND %s)", a.Left, a.Right)
}

// Or checks whether one of the two given expressions is true.
type Or struct {
	BinaryExpression
}

// NewOr creates a new Or expression.
func NewOr(left, right sql.Expression) sql.Expression {
	return &Or{BinaryExpression{Left: left, Right: right}}
}

// Type implements the Expression interface.
func (o *Or) Type(schema sql.Schema) (sql.Type, error) {
	return booleanOperands(schema, o.Left, o.Right)
}

// WithChildren implements the Expression interface.
func (o *Or) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(o, children, 2); err != nil {
		return nil, err
	}
	return NewOr(children[0], children[1]), nil
}

func (o *Or) String() string {
	return fmt.Sprintf("(%s OR %s)", o.Left, o.Right)
}

// Not is a node that negates an expression.
type Not struct {
	UnaryExpression
}

// NewNot returns a new Not node.
func NewNot(child sql.Expression) *Not {
	return &Not{UnaryExpression{child}}
}

// Type implements the Expression interface.
func (e *Not) Type(schema sql.Schema) (sql.Type, error) {
	return booleanOperands(schema, e.Child)
}

// WithChildren implements the Expression interface.
func (e *Not) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(e, children, 1); err != nil {
		return nil, err
	}
	return NewNot(children[0]), nil
}

func (e *Not) String() string {
	return fmt.Sprintf("(NOT %s)", e.Child)
}
