package plan

import (
	"fmt"
	"sort"

	"github.com/frameql/lazyframe/sql"
)

// CachedTable replaces a subtree whose results have been materialized into
// a table. It's never part of a plan built by users, only of the plans the
// executor derives from them.
type CachedTable struct {
	base
	// Original is the subtree that was materialized. It's not a child.
	Original sql.Node
	Table    sql.TableMetadata
	// Ordering of the materialized rows over the physical columns, if any.
	Ordering *sql.RowOrdering
}

type cachedTableParams struct {
	Original uint64
	Table    string
	Physical []string
	NumRows  string
	Cluster  []string
	Ordering string
}

// NewCachedTable creates a node reading the materialized results of the
// original subtree from the given table.
func NewCachedTable(original sql.Node, table sql.TableMetadata, ordering *sql.RowOrdering) (*CachedTable, error) {
	physical := table.Schema
	schema := original.Schema()
	if !physical.ContainsAll(schema.Names()) {
		return nil, sql.ErrSchemaNotSubset.New(schema.Names(), physical.Names())
	}

	n := &CachedTable{Original: original, Table: table, Ordering: ordering}
	if hidden := n.HiddenColumns(); !physical.ContainsAll(hidden) {
		return nil, sql.ErrHiddenColumnsNotSubset.New(hidden, physical.Names())
	}

	params := cachedTableParams{
		Original: original.Hash(),
		Table:    table.Ref.String(),
		Physical: physicalStrings(physical),
		NumRows:  numRowsString(table),
		Cluster:  clusterColumns(table),
	}
	if ordering != nil {
		params.Ordering = ordering.String()
	}

	err := n.init(n, "CachedTable", params, traits{
		schema:         schema,
		deterministic:  true,
		rowPreserving:  true,
		orderAmbiguous: ordering == nil || !ordering.Total,
		varsIntroduced: len(schema) + OverheadVariables,
		relOps:         1,
		session:        original.Session(),
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// HiddenColumns returns the physical columns used by the ordering that are
// not part of the schema, sorted.
func (n *CachedTable) HiddenColumns() []string {
	schema := n.Original.Schema()
	var hidden []string
	for _, c := range n.Ordering.ReferencedColumns() {
		if !schema.Contains(c) {
			hidden = append(hidden, c)
		}
	}
	sort.Strings(hidden)
	return hidden
}

// WithChildren implements the sql.Node interface.
func (n *CachedTable) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 0); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *CachedTable) String() string {
	return fmt.Sprintf("CachedTable(%s, %s, ordering=%s)", n.Table.Ref, n.schema, n.Ordering)
}
