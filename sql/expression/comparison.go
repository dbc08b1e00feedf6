package expression

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

// Comparer is an expression that compares two values.
type Comparer interface {
	sql.Expression
	Operator() string
	Operands() (sql.Expression, sql.Expression)
}

// Comparison is an expression that compares an expression against another.
type Comparison struct {
	BinaryExpression
	op string
}

// NewComparison creates a new comparison between two expressions.
func NewComparison(left, right sql.Expression, op string) Comparison {
	return Comparison{BinaryExpression{left, right}, op}
}

// Operator returns the comparison operator.
func (c *Comparison) Operator() string {
	return c.op
}

// Type implements the Expression interface. Both sides must have the same
// type, or both must be numeric.
func (c *Comparison) Type(schema sql.Schema) (sql.Type, error) {
	lt, err := c.Left.Type(schema)
	if err != nil {
		return nil, err
	}

	rt, err := c.Right.Type(schema)
	if err != nil {
		return nil, err
	}

	if sql.IsNumeric(lt) && sql.IsNumeric(rt) {
		return sql.Boolean, nil
	}

	if !lt.Equals(rt) {
		return nil, sql.ErrInvalidType.New(fmt.Sprintf("cannot compare %s with %s", lt, rt))
	}

	if c.op != "=" && c.op != "!=" && !sql.IsOrderable(lt) {
		return nil, sql.ErrInvalidType.New(fmt.Sprintf("%s values cannot be ordered", lt))
	}

	return sql.Boolean, nil
}

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.op, c.Right)
}

// Equals is a comparison that checks an expression is equal to another.
type Equals struct {
	Comparison
}

// NewEquals returns a new Equals expression.
func NewEquals(left sql.Expression, right sql.Expression) *Equals {
	return &Equals{NewComparison(left, right, "=")}
}

// WithChildren implements the Expression interface.
func (e *Equals) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(e, children, 2); err != nil {
		return nil, err
	}
	return NewEquals(children[0], children[1]), nil
}

// NotEquals is a comparison that checks an expression is not equal to
// another.
type NotEquals struct {
	Comparison
}

// NewNotEquals returns a new NotEquals expression.
func NewNotEquals(left sql.Expression, right sql.Expression) *NotEquals {
	return &NotEquals{NewComparison(left, right, "!=")}
}

// WithChildren implements the Expression interface.
func (e *NotEquals) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(e, children, 2); err != nil {
		return nil, err
	}
	return NewNotEquals(children[0], children[1]), nil
}

// GreaterThan is a comparison that checks an expression is greater than
// another.
type GreaterThan struct {
	Comparison
}

// NewGreaterThan creates a new GreaterThan expression.
func NewGreaterThan(left sql.Expression, right sql.Expression) *GreaterThan {
	return &GreaterThan{NewComparison(left, right, ">")}
}

// WithChildren implements the Expression interface.
func (gt *GreaterThan) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(gt, children, 2); err != nil {
		return nil, err
	}
	return NewGreaterThan(children[0], children[1]), nil
}

// LessThan is a comparison that checks an expression is less than another.
type LessThan struct {
	Comparison
}

// NewLessThan creates a new LessThan expression.
func NewLessThan(left sql.Expression, right sql.Expression) *LessThan {
	return &LessThan{NewComparison(left, right, "<")}
}

// WithChildren implements the Expression interface.
func (lt *LessThan) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(lt, children, 2); err != nil {
		return nil, err
	}
	return NewLessThan(children[0], children[1]), nil
}

// GreaterThanOrEqual is a comparison that checks an expression is greater
// or equal to another.
type GreaterThanOrEqual struct {
	Comparison
}

// NewGreaterThanOrEqual creates a new GreaterThanOrEqual
func NewGreaterThanOrEqual(left sql.Expression, right sql.Expression) *GreaterThanOrEqual {
	return &GreaterThanOrEqual{NewComparison(left, right, ">=")}
}

// WithChildren implements the Expression interface.
func (gte *GreaterThanOrEqual) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(gte, children, 2); err != nil {
		return nil, err
	}
	return NewGreaterThanOrEqual(children[0], children[1]), nil
}

// LessThanOrEqual is a comparison that checks an expression is less or equal
// to another.
type LessThanOrEqual struct {
	Comparison
}

// NewLessThanOrEqual creates a LessThanOrEqual expression.
func NewLessThanOrEqual(left sql.Expression, right sql.Expression) *LessThanOrEqual {
	return &LessThanOrEqual{NewComparison(left, right, "<=")}
}

// WithChildren implements the Expression interface.
func (lte *LessThanOrEqual) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(lte, children, 2); err != nil {
		return nil, err
	}
	return NewLessThanOrEqual(children[0], children[1]), nil
}
