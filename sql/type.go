package sql

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

const (
	// DateLayout is the text representation of dates.
	DateLayout = "2006-01-02"
	// TimestampLayout is the text representation of timestamps. It has a
	// fixed width, so timestamps sort like their text.
	TimestampLayout = "2006-01-02 15:04:05.000000"
)

// Type is the logical type of a column or expression.
type Type interface {
	fmt.Stringer
	// Equals returns whether both types are the same logical type.
	Equals(Type) bool
	// Convert a value to the Go representation of this type.
	Convert(interface{}) (interface{}, error)
}

var (
	// Int64 is a signed 64-bit integer.
	Int64 Type = scalarType{"INT64"}
	// Float64 is a double precision floating point number.
	Float64 Type = scalarType{"FLOAT64"}
	// Boolean is a true/false value.
	Boolean Type = scalarType{"BOOL"}
	// String is a variable length UTF-8 string.
	String Type = scalarType{"STRING"}
	// Bytes is a variable length byte string.
	Bytes Type = scalarType{"BYTES"}
	// Date is a calendar date without time zone.
	Date Type = scalarType{"DATE"}
	// Timestamp is an instant with microsecond precision.
	Timestamp Type = scalarType{"TIMESTAMP"}
)

type scalarType struct {
	name string
}

func (t scalarType) String() string { return t.name }

func (t scalarType) Equals(o Type) bool {
	s, ok := o.(scalarType)
	return ok && s.name == t.name
}

// Convert implements the Type interface. Int64, Float64, Boolean and String
// values are int64, float64, bool and string. Bytes are []byte, dates and
// timestamps are UTC time.Time values.
func (t scalarType) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case Int64:
		if b, ok := v.(bool); ok {
			return boolToInt(b), nil
		}
		return cast.ToInt64E(v)
	case Float64:
		if b, ok := v.(bool); ok {
			return float64(boolToInt(b)), nil
		}
		return cast.ToFloat64E(v)
	case Boolean:
		switch v := v.(type) {
		case int64:
			return v != 0, nil
		case float64:
			return v != 0, nil
		case []byte:
			return cast.ToBoolE(string(v))
		}
		return cast.ToBoolE(v)
	case String:
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		return cast.ToStringE(v)
	case Bytes:
		switch v := v.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
		return nil, ErrInvalidValue.New(v, t)
	case Date:
		tm, err := toTime(v)
		if err != nil {
			return nil, err
		}
		y, m, d := tm.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case Timestamp:
		tm, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return tm.UTC(), nil
	}

	return nil, ErrInvalidType.New(t.String())
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toTime(v interface{}) (time.Time, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return cast.ToTimeE(v)
}

// ArrayType is a repeated value of a single element type.
type ArrayType struct {
	Elem Type
}

// NewArray creates a new array type of the given element type.
func NewArray(elem Type) ArrayType {
	return ArrayType{Elem: elem}
}

func (t ArrayType) String() string {
	return fmt.Sprintf("ARRAY<%s>", t.Elem)
}

// Equals implements the Type interface.
func (t ArrayType) Equals(o Type) bool {
	a, ok := o.(ArrayType)
	return ok && t.Elem.Equals(a.Elem)
}

// Convert implements the Type interface. Arrays are []interface{} values,
// and may also be given as JSON text.
func (t ArrayType) Convert(v interface{}) (interface{}, error) {
	var elems []interface{}
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		elems = v
	case []byte:
		if err := json.Unmarshal(v, &elems); err != nil {
			return nil, ErrInvalidValue.Wrap(err, v, t)
		}
	case string:
		if err := json.Unmarshal([]byte(v), &elems); err != nil {
			return nil, ErrInvalidValue.Wrap(err, v, t)
		}
	default:
		var err error
		if elems, err = cast.ToSliceE(v); err != nil {
			return nil, ErrInvalidValue.Wrap(err, v, t)
		}
	}

	result := make([]interface{}, len(elems))
	for i, e := range elems {
		c, err := t.Elem.Convert(e)
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// IsNumeric returns whether the type is a number.
func IsNumeric(t Type) bool {
	return t.Equals(Int64) || t.Equals(Float64)
}

// IsArray returns whether the type is an array type.
func IsArray(t Type) bool {
	_, ok := t.(ArrayType)
	return ok
}

// IsOrderable returns whether values of the type can be compared for
// ordering.
func IsOrderable(t Type) bool {
	return !IsArray(t)
}

// IsClusterable returns whether a table column of the given type can be used
// as a cluster column.
func IsClusterable(t Type) bool {
	switch t {
	case Int64, String, Boolean, Date, Timestamp:
		return true
	default:
		return false
	}
}

// CommonNumericType returns the type two numeric operands are coerced to.
func CommonNumericType(a, b Type) (Type, error) {
	if !IsNumeric(a) {
		return nil, ErrInvalidType.New(a.String())
	}
	if !IsNumeric(b) {
		return nil, ErrInvalidType.New(b.String())
	}
	if a.Equals(Float64) || b.Equals(Float64) {
		return Float64, nil
	}
	return Int64, nil
}

// ParseType parses the string representation of a type, as returned by
// Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "INT64":
		return Int64, nil
	case "FLOAT64":
		return Float64, nil
	case "BOOL":
		return Boolean, nil
	case "STRING":
		return String, nil
	case "BYTES":
		return Bytes, nil
	case "DATE":
		return Date, nil
	case "TIMESTAMP":
		return Timestamp, nil
	}
	if len(s) > 7 && s[:6] == "ARRAY<" && s[len(s)-1] == '>' {
		elem, err := ParseType(s[6 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return NewArray(elem), nil
	}
	return nil, ErrInvalidType.New(s)
}
