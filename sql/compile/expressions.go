package compile

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
)

// expr compiles a scalar expression over the columns of its input relation.
func expr(e sql.Expression) (string, error) {
	switch e := e.(type) {
	case sql.ColumnReferencer:
		return quoteIdent(e.ColumnID()), nil
	case *expression.Literal:
		typ, _ := e.Type(nil)
		return Literal(e.Value(), typ)
	case *expression.Arithmetic:
		l, r, err := operands(e.Left, e.Right)
		if err != nil {
			return "", err
		}
		if e.Op == "/" {
			return fmt.Sprintf("(CAST(%s AS REAL) / %s)", l, r), nil
		}
		return fmt.Sprintf("(%s %s %s)", l, e.Op, r), nil
	case expression.Comparer:
		left, right := e.Operands()
		l, r, err := operands(left, right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, e.Operator(), r), nil
	case *expression.And:
		l, r, err := operands(e.Left, e.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s AND %s)", l, r), nil
	case *expression.Or:
		l, r, err := operands(e.Left, e.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s OR %s)", l, r), nil
	case *expression.Not:
		c, err := expr(e.Child)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(NOT %s)", c), nil
	case *expression.IsNull:
		c, err := expr(e.Child)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s IS NULL)", c), nil
	default:
		return "", ErrUnsupportedExpression.New(e, e)
	}
}

func operands(left, right sql.Expression) (string, string, error) {
	l, err := expr(left)
	if err != nil {
		return "", "", err
	}
	r, err := expr(right)
	if err != nil {
		return "", "", err
	}
	return l, r, nil
}

// Literal writes a value of the given type as a SQLite literal. Booleans are
// written as 0 or 1, dates and timestamps as text and arrays as JSON text.
func Literal(v interface{}, typ sql.Type) (string, error) {
	converted, err := typ.Convert(v)
	if err != nil {
		return "", ErrUnsupportedLiteral.Wrap(err, v, typ)
	}
	v = converted
	if v == nil {
		return "NULL", nil
	}

	switch typ {
	case sql.Int64:
		return strconv.FormatInt(v.(int64), 10), nil
	case sql.Float64:
		f := v.(float64)
		switch {
		case math.IsNaN(f):
			return "NULL", nil
		case math.IsInf(f, 1):
			return "9e999", nil
		case math.IsInf(f, -1):
			return "-9e999", nil
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return s, nil
	case sql.Boolean:
		if v.(bool) {
			return "1", nil
		}
		return "0", nil
	case sql.String:
		return quoteString(v.(string)), nil
	case sql.Bytes:
		return "X'" + hex.EncodeToString(v.([]byte)) + "'", nil
	case sql.Date, sql.Timestamp:
		return quoteString(textValue(v, typ).(string)), nil
	}

	if arr, ok := typ.(sql.ArrayType); ok {
		elems := v.([]interface{})
		values := make([]interface{}, len(elems))
		for i, e := range elems {
			values[i] = textValue(e, arr.Elem)
		}
		data, err := json.Marshal(values)
		if err != nil {
			return "", ErrUnsupportedLiteral.Wrap(err, v, typ)
		}
		return quoteString(string(data)), nil
	}

	return "", ErrUnsupportedLiteral.New(v, typ)
}

// textValue returns the representation of dates, timestamps and bytes
// stored as text. Other values are returned as they are.
func textValue(v interface{}, typ sql.Type) interface{} {
	switch v := v.(type) {
	case time.Time:
		if typ.Equals(sql.Date) {
			return v.Format(sql.DateLayout)
		}
		return v.UTC().Format(sql.TimestampLayout)
	case []byte:
		return string(v)
	default:
		return v
	}
}

// columnType returns the SQLite type declared for columns of the given
// type. The declared types are recognized by the driver when scanning.
func columnType(typ sql.Type) string {
	switch typ {
	case sql.Int64:
		return "INTEGER"
	case sql.Float64:
		return "REAL"
	case sql.Boolean:
		return "BOOLEAN"
	case sql.String:
		return "TEXT"
	case sql.Bytes:
		return "BLOB"
	case sql.Date:
		return "DATE"
	case sql.Timestamp:
		return "TIMESTAMP"
	}
	if arr, ok := typ.(sql.ArrayType); ok {
		return arrayTypePrefix + columnType(arr.Elem)
	}
	return "JSON"
}

const arrayTypePrefix = "JSON_ARRAY_"

// ParseColumnType returns the type of a column given its declared SQLite
// type. Declared types not written by ColumnDefinition are mapped by their
// affinity.
func ParseColumnType(decl string) (sql.Type, error) {
	decl = strings.ToUpper(strings.TrimSpace(decl))
	if strings.HasPrefix(decl, arrayTypePrefix) {
		elem, err := ParseColumnType(strings.TrimPrefix(decl, arrayTypePrefix))
		if err != nil {
			return nil, err
		}
		return sql.NewArray(elem), nil
	}

	switch decl {
	case "BOOLEAN", "BOOL":
		return sql.Boolean, nil
	case "DATE":
		return sql.Date, nil
	case "TIMESTAMP", "DATETIME":
		return sql.Timestamp, nil
	}

	switch {
	case strings.Contains(decl, "INT"):
		return sql.Int64, nil
	case strings.Contains(decl, "CHAR"), strings.Contains(decl, "CLOB"), strings.Contains(decl, "TEXT"):
		return sql.String, nil
	case decl == "", strings.Contains(decl, "BLOB"):
		return sql.Bytes, nil
	case strings.Contains(decl, "REAL"), strings.Contains(decl, "FLOA"), strings.Contains(decl, "DOUB"):
		return sql.Float64, nil
	}
	return nil, sql.ErrInvalidType.New(decl)
}

// ColumnDefinition returns the column definition of a table column.
func ColumnDefinition(col sql.PhysicalColumn) string {
	return quoteIdent(col.Name) + " " + columnType(col.Type)
}
