package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/frameql/lazyframe/sql"
)

// TableSource describes how a warehouse table is read.
type TableSource struct {
	Table sql.TableMetadata
	// OrderCols are columns that together uniquely identify every row, if
	// known.
	OrderCols []string
	// Sequential is true when the single order column holds the offsets
	// 0, 1, ..., N-1.
	Sequential bool
	// AtTime reads a snapshot of the table, if set.
	AtTime *time.Time
	// Predicate is a filter applied when reading the table. It's passed
	// through to the warehouse unvalidated.
	Predicate string
}

// ReadTable is a source node reading a warehouse table.
type ReadTable struct {
	base
	Source TableSource
}

type readTableParams struct {
	Table      string
	Physical   []string
	NumRows    string
	Cluster    []string
	Columns    []string
	OrderCols  []string
	Sequential bool
	AtTime     string
	Predicate  string
	Session    string
}

// NewReadTable creates a node reading the given columns of a table. Every
// requested column must exist in the table with the same type.
func NewReadTable(source TableSource, columns sql.Schema, session sql.SessionID) (*ReadTable, error) {
	physical := source.Table.Schema
	for _, c := range columns {
		t, ok := physical.TypeOf(c.ID)
		if !ok || !t.Equals(c.Type) {
			return nil, sql.ErrSchemaNotSubset.New(columns.Names(), physical.Names())
		}
	}

	if source.Sequential && len(source.OrderCols) != 1 {
		return nil, sql.ErrSequentialOrderKey.New(len(source.OrderCols))
	}

	var atTime string
	if source.AtTime != nil {
		atTime = source.AtTime.UTC().Format(time.RFC3339Nano)
	}

	n := &ReadTable{Source: source}
	params := readTableParams{
		Table:      source.Table.Ref.String(),
		Physical:   physicalStrings(physical),
		NumRows:    numRowsString(source.Table),
		Cluster:    clusterColumns(source.Table),
		Columns:    schemaStrings(columns),
		OrderCols:  source.OrderCols,
		Sequential: source.Sequential,
		AtTime:     atTime,
		Predicate:  source.Predicate,
		Session:    string(session),
	}
	err := n.init(n, "ReadTable", params, traits{
		schema:         columns,
		deterministic:  true,
		rowPreserving:  true,
		orderAmbiguous: len(source.OrderCols) == 0,
		varsIntroduced: len(columns) + 1,
		relOps:         3,
		session:        session,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *ReadTable) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 0); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *ReadTable) String() string {
	var opts []string
	if len(n.Source.OrderCols) > 0 {
		opts = append(opts, "order="+strings.Join(n.Source.OrderCols, ","))
	}
	if n.Source.Sequential {
		opts = append(opts, "sequential")
	}
	if n.Source.AtTime != nil {
		opts = append(opts, "at="+n.Source.AtTime.UTC().Format(time.RFC3339))
	}
	if n.Source.Predicate != "" {
		opts = append(opts, "where="+n.Source.Predicate)
	}
	s := fmt.Sprintf("ReadTable(%s, %s", n.Source.Table.Ref, n.schema)
	if len(opts) > 0 {
		s += ", " + strings.Join(opts, ", ")
	}
	return s + ")"
}
