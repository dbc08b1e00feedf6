package expression

import (
	"fmt"

	"github.com/frameql/lazyframe/sql"
)

// IsNull is an expression that checks if an expression is null.
type IsNull struct {
	UnaryExpression
}

// NewIsNull creates a new IsNull expression.
func NewIsNull(child sql.Expression) *IsNull {
	return &IsNull{UnaryExpression{child}}
}

// Type implements the Expression interface.
func (e *IsNull) Type(schema sql.Schema) (sql.Type, error) {
	if _, err := e.Child.Type(schema); err != nil {
		return nil, err
	}
	return sql.Boolean, nil
}

// WithChildren implements the Expression interface.
func (e *IsNull) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(e, children, 1); err != nil {
		return nil, err
	}
	return NewIsNull(children[0]), nil
}

func (e *IsNull) String() string {
	return fmt.Sprintf("(%s IS NULL)", e.Child)
}
