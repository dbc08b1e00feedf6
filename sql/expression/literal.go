package expression

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/frameql/lazyframe/sql"
)

// Literal represents a constant value of a given type.
type Literal struct {
	value     interface{}
	fieldType sql.Type
	// raw is set when the value could not be converted to fieldType.
	raw bool
}

// NewLiteral creates a new Literal expression. The value is converted to
// the Go representation of the type when possible.
func NewLiteral(value interface{}, fieldType sql.Type) *Literal {
	v, err := fieldType.Convert(value)
	if err != nil {
		return &Literal{value: value, fieldType: fieldType, raw: true}
	}
	return &Literal{value: v, fieldType: fieldType}
}

// Value returns the literal value.
func (p *Literal) Value() interface{} {
	return p.value
}

// Type implements the Expression interface.
func (p *Literal) Type(sql.Schema) (sql.Type, error) {
	return p.fieldType, nil
}

// Children implements the Expression interface.
func (*Literal) Children() []sql.Expression {
	return nil
}

// WithChildren implements the Expression interface.
func (p *Literal) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if err := checkChildren(p, children, 0); err != nil {
		return nil, err
	}
	return p, nil
}

// String renders the literal so that two literals have the same
// representation only if they have the same type and value.
func (p *Literal) String() string {
	if p.value == nil {
		return fmt.Sprintf("CAST(NULL AS %s)", p.fieldType)
	}
	if p.raw {
		return fmt.Sprintf("CAST(%s AS %s)", renderValue(p.value, p.fieldType), p.fieldType)
	}
	return renderValue(p.value, p.fieldType)
}

func renderValue(value interface{}, typ sql.Type) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case []byte:
		return "b" + strconv.Quote(string(v))
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case float32:
		return renderValue(float64(v), typ)
	case []interface{}:
		elem := typ
		if arr, ok := typ.(sql.ArrayType); ok {
			elem = arr.Elem
		}
		items := make([]string, len(v))
		for i, e := range v {
			if e == nil {
				items[i] = "NULL"
				continue
			}
			items[i] = renderValue(e, elem)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case time.Time:
		if typ.Equals(sql.Date) {
			return fmt.Sprintf("DATE %q", v.Format("2006-01-02"))
		}
		return fmt.Sprintf("TIMESTAMP %q", v.UTC().Format(time.RFC3339Nano))
	default:
		return fmt.Sprint(v)
	}
}
