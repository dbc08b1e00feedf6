package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frameql/lazyframe/sql"
)

func TestRoundTrip(t *testing.T) {
	require := require.New(t)

	schema := sql.Schema{
		{ID: "i", Type: sql.Int64},
		{ID: "f", Type: sql.Float64},
		{ID: "b", Type: sql.Boolean},
		{ID: "s", Type: sql.String},
		{ID: "raw", Type: sql.Bytes},
		{ID: "d", Type: sql.Date},
		{ID: "ts", Type: sql.Timestamp},
		{ID: "tags", Type: sql.NewArray(sql.String)},
	}

	d := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2021, 3, 4, 5, 6, 7, 8000, time.UTC)

	rows := []sql.Row{
		sql.NewRow(int64(1), 1.5, true, "a", []byte("x"), d, ts, []interface{}{"p", "q"}),
		sql.NewRow(nil, nil, nil, nil, nil, nil, nil, nil),
		sql.NewRow(3, float32(2), false, "c", []byte{}, d, ts, []interface{}{}),
	}

	data, err := FromRows(schema, rows)
	require.NoError(err)

	decoded, err := Decode(data, schema)
	require.NoError(err)
	require.Equal([]sql.Row{
		sql.NewRow(int64(1), 1.5, true, "a", []byte("x"), d, ts, []interface{}{"p", "q"}),
		sql.NewRow(nil, nil, nil, nil, nil, nil, nil, nil),
		sql.NewRow(int64(3), float64(2), false, "c", []byte{}, d, ts, []interface{}{}),
	}, decoded)
}

func TestEmptyBatch(t *testing.T) {
	require := require.New(t)

	schema := sql.Schema{{ID: "i", Type: sql.Int64}}
	data, err := FromRows(schema, nil)
	require.NoError(err)

	decoded, err := Decode(data, schema)
	require.NoError(err)
	require.Empty(decoded)
}

func TestFromRowsErrors(t *testing.T) {
	require := require.New(t)

	schema := sql.Schema{{ID: "i", Type: sql.Int64}}

	_, err := FromRows(schema, []sql.Row{sql.NewRow(int64(1), int64(2))})
	require.True(ErrRowLength.Is(err))

	_, err = FromRows(schema, []sql.Row{sql.NewRow("not a number")})
	require.True(ErrInvalidValue.Is(err))
}

func TestDecodeSchemaMismatch(t *testing.T) {
	require := require.New(t)

	data, err := FromRows(sql.Schema{{ID: "i", Type: sql.Int64}}, []sql.Row{sql.NewRow(int64(1))})
	require.NoError(err)

	_, err = Decode(data, sql.Schema{{ID: "j", Type: sql.Int64}})
	require.True(ErrSchemaMismatch.Is(err))

	_, err = Decode(data, sql.Schema{{ID: "i", Type: sql.String}})
	require.True(ErrSchemaMismatch.Is(err))
}
