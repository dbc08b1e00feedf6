package expression

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

// Arithmetic expressions (+, -, *, /)
type Arithmetic struct {
	BinaryExpression
	Op string
}

// NewArithmetic creates a new Arithmetic sql.Expression.
func NewArithmetic(left, right sql.Expression, op string) *Arithmetic {
	return &Arithmetic{BinaryExpression{Left: left, Right: right}, op}
}

// NewPlus creates a new Arithmetic + sql.Expression.
func NewPlus(left, right sql.Expression) *Arithmetic {
	return NewArithmetic(left, right, "+")
}

// NewMinus creates a new Arithmetic - sql.Expression.
func NewMinus(left, right sql.Expression) *Arithmetic {
	return NewArithmetic(left, right, "-")
}

// NewMult creates a new Arithmetic * sql.Expression.
func NewMult(left, right sql.Expression) *Arithmetic {
	return NewArithmetic(left, right, "*")
}

// NewDiv creates a new Arithmetic / sql.Expression.
func NewDiv(left, right sql.Expression) *Arithmetic {
	return NewArithmetic(left, right, "/")
}

// Type implements the Expression interface. Division always produces a
// floating point number.
func (a *Arithmetic) Type(schema sql.Schema) (sql.Type, error) {
	lt, err := a.Left.Type(schema)
	if err != nil {
		return nil, err
	}

	rt, err := a.Right.Type(schema)
	if err != nil {
		return nil, err
	}

	t, err := sql.CommonNumericType(lt, rt)
	if err != nil {
		return nil, err
	}

	if a.Op == "/" {
		return sql.Float64, nil
	}
	return t, nil
}

// WithChildren implements the Expression interface.
func (a *Arithmetic) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(a, children, 2); err != nil {
		return nil, err
	}
	return NewArithmetic(children[0], children[1], a.Op), nil
}

func (a *Arithmetic) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}
