// Package batch encodes in-memory rows as self-contained Arrow IPC streams,
// the form local data is embedded in plans.
package batch

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/ipc"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/spf13/cast"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/frameql/lazyframe/sql"
)

var (
	// ErrUnsupportedType is returned for types with no arrow representation.
	ErrUnsupportedType = errors.NewKind("batch: type %s is not supported")

	// ErrInvalidValue is returned when a value does not match its column type.
	ErrInvalidValue = errors.NewKind("batch: invalid value %v for column %q of type %s")

	// ErrRowLength is returned when a row has a different number of values
	// than the schema has columns.
	ErrRowLength = errors.NewKind("batch: row %d has %d values, expected %d")

	// ErrSchemaMismatch is returned when the encoded data does not match the
	// expected schema.
	ErrSchemaMismatch = errors.NewKind("batch: encoded schema %s does not match %s")
)

var epoch = time.Unix(0, 0).UTC()

const day = 24 * time.Hour

// ArrowType returns the arrow type used to store values of the given type.
func ArrowType(t sql.Type) (arrow.DataType, error) {
	switch t {
	case sql.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case sql.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case sql.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case sql.String:
		return arrow.BinaryTypes.String, nil
	case sql.Bytes:
		return arrow.BinaryTypes.Binary, nil
	case sql.Date:
		return arrow.FixedWidthTypes.Date32, nil
	case sql.Timestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
	}

	if a, ok := t.(sql.ArrayType); ok {
		elem, err := ArrowType(a.Elem)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	}

	return nil, ErrUnsupportedType.New(t)
}

// ArrowSchema returns the arrow schema for the given schema.
func ArrowSchema(schema sql.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(schema))
	for i, col := range schema {
		typ, err := ArrowType(col.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: col.ID, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// NewRecord builds an arrow record holding the rows. The caller must
// release the record.
func NewRecord(pool memory.Allocator, schema sql.Schema, rows []sql.Row) (arrow.Record, error) {
	as, err := ArrowSchema(schema)
	if err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(pool, as)
	defer builder.Release()

	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, ErrRowLength.New(i, len(row), len(schema))
		}
		for j, v := range row {
			if err := appendValue(builder.Field(j), schema[j].Type, v); err != nil {
				return nil, ErrInvalidValue.Wrap(err, v, schema[j].ID, schema[j].Type)
			}
		}
	}

	return builder.NewRecord(), nil
}

// FromRows encodes the rows as an arrow IPC stream with a single record.
func FromRows(schema sql.Schema, rows []sql.Row) ([]byte, error) {
	pool := memory.NewGoAllocator()
	record, err := NewRecord(pool, schema, rows)
	if err != nil {
		return nil, err
	}
	defer record.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()), ipc.WithAllocator(pool))
	if err := w.Write(record); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode reads back the rows of an encoded batch.
func Decode(data []byte, schema sql.Schema) ([]sql.Row, error) {
	expected, err := ArrowSchema(schema)
	if err != nil {
		return nil, err
	}

	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, err
	}
	defer r.Release()

	fields := r.Schema().Fields()
	if len(fields) != len(schema) {
		return nil, ErrSchemaMismatch.New(r.Schema(), expected)
	}
	for i, f := range fields {
		if f.Name != schema[i].ID || !arrow.TypeEqual(f.Type, expected.Field(i).Type) {
			return nil, ErrSchemaMismatch.New(r.Schema(), expected)
		}
	}

	var rows []sql.Row
	for r.Next() {
		rec := r.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make(sql.Row, len(schema))
			for j := range schema {
				row[j] = readValue(rec.Column(j), schema[j].Type, i)
			}
			rows = append(rows, row)
		}
	}

	if err := r.Err(); err != nil && err != io.EOF {
		return nil, err
	}

	return rows, nil
}

func appendValue(b array.Builder, t sql.Type, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.Int64Builder:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		b.Append(i)
	case *array.Float64Builder:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		b.Append(f)
	case *array.BooleanBuilder:
		v, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		b.Append(v)
	case *array.StringBuilder:
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.BinaryBuilder:
		switch v := v.(type) {
		case []byte:
			b.Append(v)
		case string:
			b.AppendString(v)
		default:
			return fmt.Errorf("expected bytes, got %T", v)
		}
	case *array.Date32Builder:
		tm, err := cast.ToTimeE(v)
		if err != nil {
			return err
		}
		b.Append(arrow.Date32(tm.UTC().Truncate(day).Sub(epoch) / day))
	case *array.TimestampBuilder:
		tm, err := cast.ToTimeE(v)
		if err != nil {
			return err
		}
		b.Append(arrow.Timestamp(tm.UnixNano() / int64(time.Microsecond)))
	case *array.ListBuilder:
		elems, err := cast.ToSliceE(v)
		if err != nil {
			return err
		}
		elemType := t.(sql.ArrayType).Elem
		b.Append(true)
		for _, e := range elems {
			if err := appendValue(b.ValueBuilder(), elemType, e); err != nil {
				return err
			}
		}
	default:
		return ErrUnsupportedType.New(t)
	}

	return nil
}

func readValue(arr arrow.Array, t sql.Type, i int) interface{} {
	if arr.IsNull(i) {
		return nil
	}

	switch arr := arr.(type) {
	case *array.Int64:
		return arr.Value(i)
	case *array.Float64:
		return arr.Value(i)
	case *array.Boolean:
		return arr.Value(i)
	case *array.String:
		return arr.Value(i)
	case *array.Binary:
		v := arr.Value(i)
		b := make([]byte, len(v))
		copy(b, v)
		return b
	case *array.Date32:
		return epoch.Add(time.Duration(arr.Value(i)) * day)
	case *array.Timestamp:
		return time.Unix(0, int64(arr.Value(i))*int64(time.Microsecond)).UTC()
	case *array.List:
		offsets := arr.Offsets()
		values := arr.ListValues()
		elemType := t.(sql.ArrayType).Elem
		elems := make([]interface{}, 0, offsets[i+1]-offsets[i])
		for j := offsets[i]; j < offsets[i+1]; j++ {
			elems = append(elems, readValue(values, elemType, int(j)))
		}
		return elems
	}

	return nil
}
