package sqlite

import (
	"context"
	gosql "database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frameql/lazyframe/sql"
)

var (
	testDate = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	testTime = time.Date(2024, time.January, 2, 3, 4, 5, 6000, time.UTC)
)

var allTypes = sql.PhysicalSchema{
	{Name: "id", Type: sql.Int64},
	{Name: "name", Type: sql.String},
	{Name: "flag", Type: sql.Boolean},
	{Name: "d", Type: sql.Date},
	{Name: "ts", Type: sql.Timestamp},
	{Name: "b", Type: sql.Bytes},
	{Name: "xs", Type: sql.NewArray(sql.Int64)},
	{Name: "f", Type: sql.Float64},
}

var allTypesRows = []sql.Row{
	sql.NewRow(int64(1), "it's", true, testDate, testTime, []byte("hi"), []interface{}{int64(1), int64(2)}, 1.5),
	sql.NewRow(int64(2), nil, nil, nil, nil, nil, nil, nil),
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func logicalSchema(schema sql.PhysicalSchema) sql.Schema {
	items := make(sql.Schema, len(schema))
	for i, col := range schema {
		items[i] = sql.SchemaItem{ID: col.Name, Type: col.Type}
	}
	return items
}

func TestLoadTable(t *testing.T) {
	require := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	ref := sql.TableRef{Dataset: "main", Table: "t"}
	require.NoError(db.LoadTable(ctx, ref, allTypes, allTypesRows, []string{"id", "name"}))

	table, err := NewClient(db).GetTable(ctx, ref)
	require.NoError(err)
	require.Equal(ref, table.Ref)
	require.Equal(allTypes, table.Schema)
	require.NotNil(table.NumRows)
	require.Equal(int64(2), *table.NumRows)
	require.Equal([]string{"id", "name"}, table.ClusterColumns)

	rows, err := readRows(ctx, db.db, `SELECT * FROM "main"."t" ORDER BY "id"`)
	require.NoError(err)
	require.Len(rows, 2)
	for i, row := range rows {
		converted, err := sql.ConvertRow(logicalSchema(allTypes), row)
		require.NoError(err)
		require.Equal(allTypesRows[i], converted)
	}
}

func TestLoadTableErrors(t *testing.T) {
	require := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	ref := sql.TableRef{Table: "t"}
	schema := sql.PhysicalSchema{{Name: "id", Type: sql.Int64}}

	err := db.LoadTable(ctx, ref, schema, []sql.Row{sql.NewRow(int64(1), "x")}, nil)
	require.True(sql.ErrRowLength.Is(err))

	_, err = NewClient(db).GetTable(ctx, ref)
	require.True(ErrTableNotFound.Is(err))

	require.NoError(db.CreateTable(ctx, ref, schema, nil))
	err = db.CreateTable(ctx, ref, schema, nil)
	require.True(ErrTableExists.Is(err))
}

// cancelledQuerier cancels the context of every query once it has started,
// so that reading its rows fails.
type cancelledQuerier struct {
	db *gosql.DB
}

func (q cancelledQuerier) QueryContext(ctx context.Context, query string, args ...interface{}) (*gosql.Rows, error) {
	ctx, cancel := context.WithCancel(ctx)
	rows, err := q.db.QueryContext(ctx, query, args...)
	cancel()
	time.Sleep(50 * time.Millisecond)
	return rows, err
}

func TestGetTableInterrupted(t *testing.T) {
	require := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	ref := sql.TableRef{Dataset: "main", Table: "t"}
	require.NoError(db.LoadTable(ctx, ref, allTypes, allTypesRows, nil))

	_, err := getTable(ctx, cancelledQuerier{db.db}, ref)
	require.Error(err)
	require.False(ErrTableNotFound.Is(err))

	table, err := NewClient(db).GetTable(ctx, ref)
	require.NoError(err)
	require.Equal(allTypes, table.Schema)
}

func TestAttach(t *testing.T) {
	require := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(db.Attach(ctx, ":memory:", "warehouse"))

	ref := sql.TableRef{Project: "p", Dataset: "warehouse", Table: "t"}
	schema := sql.PhysicalSchema{{Name: "id", Type: sql.Int64}}
	require.NoError(db.LoadTable(ctx, ref, schema, []sql.Row{sql.NewRow(int64(7))}, []string{"id"}))

	table, err := NewClient(db).GetTable(ctx, ref)
	require.NoError(err)
	require.Equal(int64(1), *table.NumRows)
	require.Equal([]string{"id"}, table.ClusterColumns)
}

func TestStorageManager(t *testing.T) {
	require := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	storage := NewStorageManager(db)
	schema := sql.PhysicalSchema{
		{Name: "a", Type: sql.Int64},
		{Name: "b", Type: sql.String},
	}

	ref, err := storage.CreateTempTable(ctx, schema, []string{"b"})
	require.NoError(err)
	require.Equal(TempDataset, ref.Dataset)
	require.Contains(ref.Table, TempTablePrefix)

	other, err := storage.CreateTempTable(ctx, schema, nil)
	require.NoError(err)
	require.NotEqual(ref, other)
	require.Equal([]sql.TableRef{ref, other}, storage.Tables())

	client := NewClient(db)
	table, err := client.GetTable(ctx, ref)
	require.NoError(err)
	require.Equal(schema, table.Schema)
	require.Equal(int64(0), *table.NumRows)
	require.Equal([]string{"b"}, table.ClusterColumns)

	table, err = client.GetTable(ctx, other)
	require.NoError(err)
	require.Empty(table.ClusterColumns)

	require.NoError(storage.Close(ctx))
	require.Empty(storage.Tables())

	_, err = client.GetTable(ctx, ref)
	require.True(ErrTableNotFound.Is(err))
}

func TestParseTableRef(t *testing.T) {
	testCases := []sql.TableRef{
		{Dataset: "d", Table: "t"},
		{Project: "p", Dataset: "d", Table: "t"},
		{Table: "t"},
	}

	for _, ref := range testCases {
		t.Run(ref.String(), func(t *testing.T) {
			require.Equal(t, ref, parseTableRef(ref.String()))
		})
	}
}
