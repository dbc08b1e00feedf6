package sql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInt64(t *testing.T) {
	convert(t, Int64, int64(1), int64(1))
	convert(t, Int64, 1, int64(1))
	convert(t, Int64, int32(1), int64(1))
	convert(t, Int64, "5", int64(5))
	convert(t, Int64, true, int64(1))
	convert(t, Int64, nil, nil)
	convertErr(t, Int64, "a")
}

func TestFloat64(t *testing.T) {
	convert(t, Float64, 1.5, 1.5)
	convert(t, Float64, int64(2), float64(2))
	convert(t, Float64, "2.5", 2.5)
	convert(t, Float64, false, float64(0))
	convertErr(t, Float64, "a")
}

func TestBoolean(t *testing.T) {
	convert(t, Boolean, true, true)
	convert(t, Boolean, int64(0), false)
	convert(t, Boolean, int64(3), true)
	convert(t, Boolean, "true", true)
	convert(t, Boolean, []byte("false"), false)
	convertErr(t, Boolean, "x")
}

func TestString(t *testing.T) {
	convert(t, String, "a", "a")
	convert(t, String, []byte("b"), "b")
	convert(t, String, int64(1), "1")
}

func TestBytes(t *testing.T) {
	convert(t, Bytes, []byte("a"), []byte("a"))
	convert(t, Bytes, "b", []byte("b"))
	convertErr(t, Bytes, int64(1))
}

func TestDate(t *testing.T) {
	expected := time.Date(2018, time.October, 18, 0, 0, 0, 0, time.UTC)
	convert(t, Date, "2018-10-18", expected)
	convert(t, Date, []byte("2018-10-18"), expected)
	convert(t, Date, time.Date(2018, time.October, 18, 5, 22, 25, 0, time.UTC), expected)
	convertErr(t, Date, "yesterday")
}

func TestTimestamp(t *testing.T) {
	require := require.New(t)

	now := time.Date(2018, time.October, 18, 5, 22, 25, 123456000, time.UTC)
	convert(t, Timestamp, now, now)

	v, err := Timestamp.Convert(now.Format(TimestampLayout))
	require.NoError(err)
	require.True(now.Equal(v.(time.Time)))

	v, err = Timestamp.Convert("2018-10-18T05:22:25+07:00")
	require.NoError(err)
	require.Equal("2018-10-17 22:22:25.000000", v.(time.Time).Format(TimestampLayout))
}

func TestArray(t *testing.T) {
	typ := NewArray(Int64)
	convert(t, typ, []interface{}{1, int64(2), nil}, []interface{}{int64(1), int64(2), nil})
	convert(t, typ, "[1,2,3]", []interface{}{int64(1), int64(2), int64(3)})
	convert(t, typ, []byte("[]"), []interface{}{})
	convert(t, typ, nil, nil)
	convertErr(t, typ, "[1,")
	convertErr(t, NewArray(Bytes), "[1]")
}

func TestTypeProperties(t *testing.T) {
	require := require.New(t)

	require.True(IsNumeric(Int64))
	require.True(IsNumeric(Float64))
	require.False(IsNumeric(String))

	require.True(IsArray(NewArray(String)))
	require.False(IsOrderable(NewArray(String)))
	require.True(IsOrderable(Timestamp))

	require.True(IsClusterable(Date))
	require.False(IsClusterable(Float64))
	require.False(IsClusterable(NewArray(Int64)))

	typ, err := CommonNumericType(Int64, Float64)
	require.NoError(err)
	require.Equal(Float64, typ)

	_, err = CommonNumericType(Int64, String)
	require.True(ErrInvalidType.Is(err))
}

func TestParseType(t *testing.T) {
	require := require.New(t)

	for _, typ := range []Type{Int64, Float64, Boolean, String, Bytes, Date, Timestamp, NewArray(NewArray(Date))} {
		parsed, err := ParseType(typ.String())
		require.NoError(err)
		require.True(typ.Equals(parsed), typ.String())
	}

	_, err := ParseType("ARRAY<>")
	require.True(ErrInvalidType.Is(err))
}

func TestConvertRowIterBool(t *testing.T) {
	require := require.New(t)

	schema := Schema{{ID: "a", Type: Int64}, {ID: "b", Type: Boolean}}
	iter := NewConvertRowIter(schema, RowsToRowIter(NewRow("1", int64(1)), NewRow(nil, int64(0))))
	rows, err := RowIterToRows(iter)
	require.NoError(err)
	require.Equal([]Row{NewRow(int64(1), true), NewRow(nil, false)}, rows)

	_, err = ConvertRow(schema, NewRow(int64(1)))
	require.True(ErrRowLength.Is(err))
}

func convert(t *testing.T, typ Type, val interface{}, to interface{}) {
	t.Helper()
	v, err := typ.Convert(val)
	require.NoError(t, err)
	require.Equal(t, to, v)
}

func convertErr(t *testing.T, typ Type, val interface{}) {
	t.Helper()
	_, err := typ.Convert(val)
	require.Error(t, err)
}
