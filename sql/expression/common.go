package expression

import (
	"github.com/frameql/lazyframe/sql"
)

// UnaryExpression is an expression that has only one children.
type UnaryExpression struct {
	Child sql.Expression
}

// Children implements the Expression interface.
func (p *UnaryExpression) Children() []sql.Expression {
	return []sql.Expression{p.Child}
}

// BinaryExpression is an expression that has two children.
type BinaryExpression struct {
	Left  sql.Expression
	Right sql.Expression
}

// Children implements the Expression interface.
func (p *BinaryExpression) Children() []sql.Expression {
	return []sql.Expression{p.Left, p.Right}
}

// Operands returns both sides of the expression.
func (p *BinaryExpression) Operands() (sql.Expression, sql.Expression) {
	return p.Left, p.Right
}

func checkChildren(e sql.Expression, children []sql.Expression, expected int) error {
	if len(children) != expected {
		return sql.ErrInvalidChildrenNumber.New(e, len(children), expected)
	}
	return nil
}
