package lazyframe

import (
	"fmt"
	"sort"
	"strings"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/frameql/lazyframe/sql"
)

// IfExists is the behaviour of an export when the destination table already
// has data.
type IfExists int

const (
	// IfExistsFail fails the export.
	IfExistsFail IfExists = iota
	// IfExistsReplace replaces the table contents.
	IfExistsReplace
	// IfExistsAppend appends to the table contents.
	IfExistsAppend
)

// WriteDisposition returns the write disposition of the export job.
func (i IfExists) WriteDisposition() sql.WriteDisposition {
	switch i {
	case IfExistsReplace:
		return sql.WriteTruncate
	case IfExistsAppend:
		return sql.WriteAppend
	default:
		return sql.WriteEmpty
	}
}

func (i IfExists) String() string {
	switch i {
	case IfExistsReplace:
		return "replace"
	case IfExistsAppend:
		return "append"
	default:
		return "fail"
	}
}

// ExportFormat is the file format of an export to an external store.
type ExportFormat string

const (
	// CSV exports comma separated values.
	CSV ExportFormat = "csv"
	// JSON exports newline delimited JSON.
	JSON ExportFormat = "json"
	// Parquet exports Apache Parquet files.
	Parquet ExportFormat = "parquet"
)

// ErrUnsupportedExportFormat is returned for an unknown export format.
var ErrUnsupportedExportFormat = errors.NewKind("unsupported export format: %q")

func (f ExportFormat) validate() error {
	switch f {
	case CSV, JSON, Parquet:
		return nil
	default:
		return ErrUnsupportedExportFormat.New(string(f))
	}
}

// exportDataStatement builds the statement exporting every row of a table
// to the given uri. Options come after uri and format, sorted by name.
func exportDataStatement(table sql.TableRef, uri string, format ExportFormat, options map[string]interface{}) string {
	opts := []string{
		"uri = " + optionLiteral(uri),
		"format = " + optionLiteral(strings.ToUpper(string(format))),
	}

	names := make([]string, 0, len(options))
	for k := range options {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		opts = append(opts, fmt.Sprintf("%s = %s", k, optionLiteral(options[k])))
	}

	return fmt.Sprintf("EXPORT DATA OPTIONS(%s) AS SELECT * FROM `%s`", strings.Join(opts, ", "), table)
}

func optionLiteral(v interface{}) string {
	switch v := v.(type) {
	case string:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(v)
	}
}
