package expression

import (
	"github.com/frameql/lazyframe/sql"
)

// ColumnRef is a reference to a column of the input schema by its id.
type ColumnRef struct {
	id string
}

// NewColumnRef creates a new reference to the column with the given id.
func NewColumnRef(id string) *ColumnRef {
	return &ColumnRef{id}
}

// ColumnID implements the sql.ColumnReferencer interface.
func (c *ColumnRef) ColumnID() string {
	return c.id
}

// Type implements the Expression interface.
func (c *ColumnRef) Type(schema sql.Schema) (sql.Type, error) {
	return schema.TypeOf(c.id)
}

// Children implements the Expression interface.
func (*ColumnRef) Children() []sql.Expression {
	return nil
}

// WithChildren implements the Expression interface.
func (c *ColumnRef) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(c, children, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ColumnRef) String() string {
	return c.id
}

// TotalOrderingFromOffset returns the total ordering given by an ascending
// offset column.
func TotalOrderingFromOffset(col string) *sql.RowOrdering {
	return &sql.RowOrdering{
		Keys:  []sql.OrderingExpression{sql.NewOrderingExpression(NewColumnRef(col))},
		Total: true,
	}
}

// OrderingFromColumns returns an ascending ordering over the given columns.
func OrderingFromColumns(total bool, cols ...string) *sql.RowOrdering {
	keys := make([]sql.OrderingExpression, len(cols))
	for i, c := range cols {
		keys[i] = sql.NewOrderingExpression(NewColumnRef(c))
	}
	return &sql.RowOrdering{Keys: keys, Total: total}
}
