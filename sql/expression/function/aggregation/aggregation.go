package aggregation

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
)

// Unary applies an aggregate operator to the values of an expression.
type Unary struct {
	expression.UnaryExpression
	op AggregateOp
}

var _ sql.Aggregation = (*Unary)(nil)

// NewUnary creates a new aggregation of the given expression.
func NewUnary(op AggregateOp, arg sql.Expression) *Unary {
	return &Unary{expression.UnaryExpression{Child: arg}, op}
}

// Op implements the sql.Aggregation interface.
func (u *Unary) Op() string {
	return u.op.String()
}

// Operator returns the aggregate operator.
func (u *Unary) Operator() AggregateOp {
	return u.op
}

// Type implements the Expression interface.
func (u *Unary) Type(schema sql.Schema) (sql.Type, error) {
	t, err := u.Child.Type(schema)
	if err != nil {
		return nil, err
	}
	return u.op.OutputType(t)
}

// WithChildren implements the Expression interface.
func (u *Unary) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(u, len(children), 1)
	}
	return NewUnary(u.op, children[0]), nil
}

func (u *Unary) String() string {
	return fmt.Sprintf("%s(%s)", u.op, u.Child)
}

// Size is the number of rows in the group, including nulls.
type Size struct{}

var _ sql.Aggregation = (*Size)(nil)

// NewSize creates a new Size aggregation.
func NewSize() *Size {
	return &Size{}
}

// Op implements the sql.Aggregation interface.
func (*Size) Op() string {
	return "size"
}

// Type implements the Expression interface.
func (*Size) Type(sql.Schema) (sql.Type, error) {
	return sql.Int64, nil
}

// Children implements the Expression interface.
func (*Size) Children() []sql.Expression {
	return nil
}

// WithChildren implements the Expression interface.
func (s *Size) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(s, len(children), 0)
	}
	return s, nil
}

func (*Size) String() string {
	return "size()"
}
