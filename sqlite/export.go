package sqlite

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/apache/arrow/go/v11/parquet"
	"github.com/apache/arrow/go/v11/parquet/compress"
	"github.com/apache/arrow/go/v11/parquet/pqarrow"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/batch"
	"github.com/frameql/lazyframe/sql/compile"
)

var (
	// ErrInvalidExport is returned for a malformed export statement.
	ErrInvalidExport = errors.NewKind("sqlite: invalid export statement: %s")

	// ErrUnsupportedURI is returned when exporting to a location other than
	// the local filesystem.
	ErrUnsupportedURI = errors.NewKind("sqlite: cannot export to %q, only file uris are supported")

	// ErrUnsupportedFormat is returned for an unknown export format.
	ErrUnsupportedFormat = errors.NewKind("sqlite: unsupported export format %q")

	// ErrUnsupportedValue is returned when a value cannot be written in the
	// export format.
	ErrUnsupportedValue = errors.NewKind("sqlite: cannot export value of type %s as %s")
)

var (
	exportStatement = regexp.MustCompile("^EXPORT DATA OPTIONS\\((.*)\\) AS SELECT \\* FROM `([^`]+)`$")
	exportOption    = regexp.MustCompile(`(\w+) = ('(?:[^'\\]|\\.)*'|TRUE|FALSE|[^,]+)`)
)

// exportShard replaces the wildcard of export uris, which names the shard
// of each file. A single file is written.
const exportShard = "000000000000"

type export struct {
	table   sql.TableRef
	uri     string
	format  string
	options map[string]interface{}
}

// parseExport parses an export statement. It returns false if the query is
// not an export.
func parseExport(query string) (*export, bool, error) {
	query = strings.TrimSpace(query)
	if !strings.HasPrefix(query, "EXPORT DATA") {
		return nil, false, nil
	}

	m := exportStatement.FindStringSubmatch(query)
	if m == nil {
		return nil, true, ErrInvalidExport.New(query)
	}

	e := &export{
		table:   parseTableRef(m[2]),
		options: make(map[string]interface{}),
	}
	for _, opt := range exportOption.FindAllStringSubmatch(m[1], -1) {
		e.options[opt[1]] = optionValue(strings.TrimSpace(opt[2]))
	}

	uri, ok := e.options["uri"].(string)
	if !ok {
		return nil, true, ErrInvalidExport.New(query)
	}
	format, ok := e.options["format"].(string)
	if !ok {
		return nil, true, ErrInvalidExport.New(query)
	}
	e.uri, e.format = uri, strings.ToUpper(format)
	delete(e.options, "uri")
	delete(e.options, "format")

	return e, true, nil
}

func optionValue(s string) interface{} {
	switch {
	case s == "TRUE":
		return true
	case s == "FALSE":
		return false
	case strings.HasPrefix(s, "'"):
		var sb strings.Builder
		escaped := false
		for _, r := range s[1 : len(s)-1] {
			if !escaped && r == '\\' {
				escaped = true
				continue
			}
			escaped = false
			sb.WriteRune(r)
		}
		return sb.String()
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// path returns the local path of the export uri.
func (e *export) path() (string, error) {
	path := e.uri
	if strings.Contains(path, "://") {
		if !strings.HasPrefix(path, "file://") {
			return "", ErrUnsupportedURI.New(e.uri)
		}
		path = strings.TrimPrefix(path, "file://")
	}
	return filepath.FromSlash(strings.Replace(path, "*", exportShard, -1)), nil
}

func (j *job) export(ctx context.Context, e *export) error {
	path, err := e.path()
	if err != nil {
		return err
	}

	table, err := getTable(ctx, j.db(), e.table)
	if err != nil {
		return err
	}

	schema := make(sql.Schema, len(table.Schema))
	for i, col := range table.Schema {
		schema[i] = sql.SchemaItem{ID: col.Name, Type: col.Type}
	}

	raw, err := readRows(ctx, j.db(), "SELECT * FROM "+compile.TableName(e.table)+" ORDER BY rowid")
	if err != nil {
		return err
	}

	rows := make([]sql.Row, len(raw))
	for i, row := range raw {
		if rows[i], err = sql.ConvertRow(schema, row); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	switch e.format {
	case "CSV":
		err = writeCSV(&buf, schema, rows, e.options)
	case "JSON":
		err = writeJSON(&buf, schema, rows)
	case "PARQUET":
		err = writeParquet(&buf, schema, rows, e.options)
	default:
		err = ErrUnsupportedFormat.New(e.format)
	}
	if err != nil {
		return err
	}

	j.logger().WithFields(logrus.Fields{
		"path":   path,
		"format": e.format,
		"rows":   len(rows),
	}).Debug("exporting table")

	return ioutil.WriteFile(path, buf.Bytes(), 0644)
}

func writeCSV(buf *bytes.Buffer, schema sql.Schema, rows []sql.Row, options map[string]interface{}) error {
	w := csv.NewWriter(buf)
	if d, ok := options["field_delimiter"].(string); ok && len(d) > 0 {
		w.Comma = []rune(d)[0]
	}

	header := true
	if h, ok := options["header"].(bool); ok {
		header = h
	}
	if header {
		if err := w.Write(schema.Names()); err != nil {
			return err
		}
	}

	record := make([]string, len(schema))
	for _, row := range rows {
		for i, v := range row {
			s, err := csvValue(v, schema[i].Type)
			if err != nil {
				return err
			}
			record[i] = s
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func csvValue(v interface{}, typ sql.Type) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case []interface{}:
		return "", ErrUnsupportedValue.New(typ, "CSV")
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case time.Time:
		return timeText(v, typ), nil
	}
	return cast.ToStringE(v)
}

func writeJSON(buf *bytes.Buffer, schema sql.Schema, rows []sql.Row) error {
	for _, row := range rows {
		buf.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(schema[i].ID)
			if err != nil {
				return err
			}
			value, err := json.Marshal(jsonValue(v, schema[i].Type))
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteString("}\n")
	}
	return nil
}

func jsonValue(v interface{}, typ sql.Type) interface{} {
	switch v := v.(type) {
	case time.Time:
		return timeText(v, typ)
	case []interface{}:
		elem := typ.(sql.ArrayType).Elem
		values := make([]interface{}, len(v))
		for i, e := range v {
			values[i] = jsonValue(e, elem)
		}
		return values
	}
	return v
}

func timeText(t time.Time, typ sql.Type) string {
	if typ.Equals(sql.Date) {
		return t.Format(sql.DateLayout)
	}
	return t.UTC().Format(sql.TimestampLayout)
}

var compressionCodecs = map[string]compress.Compression{
	"NONE":   compress.Codecs.Uncompressed,
	"SNAPPY": compress.Codecs.Snappy,
	"GZIP":   compress.Codecs.Gzip,
	"ZSTD":   compress.Codecs.Zstd,
}

func writeParquet(buf *bytes.Buffer, schema sql.Schema, rows []sql.Row, options map[string]interface{}) error {
	codec := compress.Codecs.Snappy
	if name, ok := options["compression"].(string); ok {
		if codec, ok = compressionCodecs[strings.ToUpper(name)]; !ok {
			return ErrUnsupportedFormat.New("PARQUET compression " + name)
		}
	}

	pool := memory.NewGoAllocator()
	record, err := batch.NewRecord(pool, schema, rows)
	if err != nil {
		return err
	}
	defer record.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(codec))
	w, err := pqarrow.NewFileWriter(record.Schema(), buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return err
	}
	if err := w.Write(record); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
