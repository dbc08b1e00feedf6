package sqlite

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v11/parquet/file"
	"github.com/stretchr/testify/require"

	"github.com/frameql/lazyframe/sql"
)

var exportSchema = sql.PhysicalSchema{
	{Name: "id", Type: sql.Int64},
	{Name: "name", Type: sql.String},
	{Name: "flag", Type: sql.Boolean},
	{Name: "d", Type: sql.Date},
	{Name: "f", Type: sql.Float64},
	{Name: "b", Type: sql.Bytes},
}

var exportRows = []sql.Row{
	sql.NewRow(int64(1), "a,b", true, testDate, 1.5, []byte("hi")),
	sql.NewRow(int64(2), nil, nil, nil, nil, nil),
}

func newExportDB(t *testing.T) (*Client, string) {
	t.Helper()
	db := newTestDB(t)
	ref := sql.TableRef{Dataset: "main", Table: "t"}
	require.NoError(t, db.LoadTable(context.Background(), ref, exportSchema, exportRows, nil))
	return NewClient(db), t.TempDir()
}

func TestParseExport(t *testing.T) {
	require := require.New(t)

	e, ok, err := parseExport("EXPORT DATA OPTIONS(uri = 'file:///tmp/it\\'s-*.csv', format = 'CSV', " +
		"field_delimiter = ';', header = FALSE, max = 10) AS SELECT * FROM `main.t`")
	require.True(ok)
	require.NoError(err)
	require.Equal(sql.TableRef{Dataset: "main", Table: "t"}, e.table)
	require.Equal("file:///tmp/it's-*.csv", e.uri)
	require.Equal("CSV", e.format)
	require.Equal(map[string]interface{}{
		"field_delimiter": ";",
		"header":          false,
		"max":             int64(10),
	}, e.options)

	path, err := e.path()
	require.NoError(err)
	require.Equal(filepath.FromSlash("/tmp/it's-000000000000.csv"), path)

	_, ok, _ = parseExport("SELECT 1")
	require.False(ok)

	_, ok, err = parseExport("EXPORT DATA AS SELECT 1")
	require.True(ok)
	require.True(ErrInvalidExport.Is(err))

	_, ok, err = parseExport("EXPORT DATA OPTIONS(format = 'CSV') AS SELECT * FROM `main.t`")
	require.True(ok)
	require.True(ErrInvalidExport.Is(err))
}

func TestExportCSV(t *testing.T) {
	require := require.New(t)
	client, dir := newExportDB(t)

	uri := "file://" + filepath.ToSlash(dir) + "/out-*.csv"
	_, _, err := runJob(t, client, "EXPORT DATA OPTIONS(uri = '"+uri+"', format = 'CSV') AS SELECT * FROM `main.t`", sql.JobConfig{})
	require.NoError(err)

	data, err := ioutil.ReadFile(filepath.Join(dir, "out-000000000000.csv"))
	require.NoError(err)
	require.Equal("id,name,flag,d,f,b\n1,\"a,b\",true,2024-01-02,1.5,aGk=\n2,,,,,\n", string(data))

	_, _, err = runJob(t, client, "EXPORT DATA OPTIONS(uri = '"+uri+"', format = 'CSV', "+
		"field_delimiter = ';', header = FALSE) AS SELECT * FROM `main.t`", sql.JobConfig{})
	require.NoError(err)

	data, err = ioutil.ReadFile(filepath.Join(dir, "out-000000000000.csv"))
	require.NoError(err)
	require.Equal("1;a,b;true;2024-01-02;1.5;aGk=\n2;;;;;\n", string(data))
}

func TestExportJSON(t *testing.T) {
	require := require.New(t)
	client, dir := newExportDB(t)

	path := filepath.Join(dir, "out.json")
	_, _, err := runJob(t, client, "EXPORT DATA OPTIONS(uri = '"+filepath.ToSlash(path)+"', format = 'JSON') AS SELECT * FROM `main.t`", sql.JobConfig{})
	require.NoError(err)

	data, err := ioutil.ReadFile(path)
	require.NoError(err)
	require.Equal(
		`{"id":1,"name":"a,b","flag":true,"d":"2024-01-02","f":1.5,"b":"aGk="}`+"\n"+
			`{"id":2,"name":null,"flag":null,"d":null,"f":null,"b":null}`+"\n",
		string(data),
	)
}

func TestExportParquet(t *testing.T) {
	require := require.New(t)
	client, dir := newExportDB(t)

	path := filepath.Join(dir, "out.parquet")
	_, _, err := runJob(t, client, "EXPORT DATA OPTIONS(uri = 'file://"+filepath.ToSlash(path)+"', format = 'PARQUET', "+
		"compression = 'NONE') AS SELECT * FROM `main.t`", sql.JobConfig{})
	require.NoError(err)

	data, err := ioutil.ReadFile(path)
	require.NoError(err)

	reader, err := file.NewParquetReader(bytes.NewReader(data))
	require.NoError(err)
	defer reader.Close()

	require.Equal(int64(2), reader.NumRows())
	schema := reader.MetaData().Schema
	require.Equal(len(exportSchema), schema.NumColumns())
	for i, col := range exportSchema {
		require.Equal(col.Name, schema.Column(i).Name())
	}
}

func TestExportErrors(t *testing.T) {
	require := require.New(t)
	client, dir := newExportDB(t)

	_, _, err := runJob(t, client, "EXPORT DATA OPTIONS(uri = 'gs://bucket/out-*.csv', format = 'CSV') AS SELECT * FROM `main.t`", sql.JobConfig{})
	require.True(ErrUnsupportedURI.Is(err))

	path := filepath.ToSlash(filepath.Join(dir, "out.avro"))
	_, _, err = runJob(t, client, "EXPORT DATA OPTIONS(uri = '"+path+"', format = 'AVRO') AS SELECT * FROM `main.t`", sql.JobConfig{})
	require.True(ErrUnsupportedFormat.Is(err))

	_, _, err = runJob(t, client, "EXPORT DATA OPTIONS(uri = '"+path+"', format = 'CSV') AS SELECT * FROM `main.missing`", sql.JobConfig{})
	require.True(ErrTableNotFound.Is(err))

	_, _, err = runJob(t, client, "EXPORT DATA OPTIONS(uri = 'gs://bucket/x', format = 'CSV') AS SELECT * FROM `main.t`", sql.JobConfig{DryRun: true})
	require.NoError(err)
}
