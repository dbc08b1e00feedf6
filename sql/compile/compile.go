// Package compile lowers plans to SQLite statements.
//
// Every plan node lowers to a relation: a SELECT statement whose result has
// the visible columns of the node, in schema order, followed by hidden
// columns that carry its row ordering. Ordering keys only ever reference
// hidden columns, so projections can drop visible columns without losing
// the order of the rows.
package compile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrUnsupportedNode is returned for plan nodes the engine can't run.
	ErrUnsupportedNode = errors.NewKind("cannot compile node: %s")

	// ErrUnsupportedExpression is returned for expressions with no SQL
	// equivalent.
	ErrUnsupportedExpression = errors.NewKind("cannot compile expression %s of type %T")

	// ErrUnsupportedLiteral is returned for constants that can't be written
	// as SQL literals.
	ErrUnsupportedLiteral = errors.NewKind("cannot write %v as a literal of type %s")
)

// Compiler compiles plans to SQLite statements. It is safe for concurrent
// use.
type Compiler struct {
	// StrictOrdering gives tables with no order columns a total order
	// based on their row ids.
	StrictOrdering bool
}

var _ sql.Compiler = (*Compiler)(nil)

// NewCompiler creates a new Compiler.
func NewCompiler(strictOrdering bool) *Compiler {
	return &Compiler{StrictOrdering: strictOrdering}
}

// CompileOrdered implements the sql.Compiler interface.
func (c *Compiler) CompileOrdered(plan sql.Node, overrides map[string]string) (string, error) {
	r, err := c.lower(plan)
	if err != nil {
		return "", err
	}

	query := selectFrom(outputColumns(r.schema, overrides), r.query)
	if len(r.keys) > 0 {
		query += " ORDER BY " + orderByClause(r.keys)
	}
	return query, nil
}

// CompileUnordered implements the sql.Compiler interface.
func (c *Compiler) CompileUnordered(plan sql.Node, overrides map[string]string) (string, error) {
	r, err := c.lower(plan)
	if err != nil {
		return "", err
	}
	return selectFrom(outputColumns(r.schema, overrides), r.query), nil
}

// CompileRaw implements the sql.Compiler interface. The result has the
// visible columns followed by the hidden ordering columns.
func (c *Compiler) CompileRaw(plan sql.Node) (string, sql.PhysicalSchema, *sql.RowOrdering, error) {
	r, err := c.lower(plan)
	if err != nil {
		return "", nil, nil, err
	}

	physical := append(r.schema.Physical(), r.hidden...)
	query := selectFrom(quoteAll(physical.Names()), r.query)

	var ordering *sql.RowOrdering
	if len(r.keys) > 0 {
		ordering = &sql.RowOrdering{Total: r.total}
		for _, k := range r.keys {
			ordering.Keys = append(ordering.Keys, sql.OrderingExpression{
				Expr:       expression.NewColumnRef(k.column),
				Descending: k.descending,
				NullsFirst: k.nullsFirst,
			})
		}
	}

	return query, physical, ordering, nil
}

// CompilePeek implements the sql.Compiler interface.
func (c *Compiler) CompilePeek(plan sql.Node, n int) (string, error) {
	r, err := c.lower(plan)
	if err != nil {
		return "", err
	}
	query := selectFrom(outputColumns(r.schema, nil), r.query)
	return query + " LIMIT " + strconv.Itoa(n), nil
}

func (c *Compiler) lower(plan sql.Node) (*relation, error) {
	comp := &compilation{strict: c.StrictOrdering}
	return comp.lower(plan)
}

func outputColumns(schema sql.Schema, overrides map[string]string) []string {
	cols := make([]string, len(schema))
	for i, item := range schema {
		name := item.ID
		if o, ok := overrides[name]; ok {
			name = o
		}
		cols[i] = alias(quoteIdent(item.ID), name)
	}
	return cols
}

func selectFrom(cols []string, from string) string {
	return fmt.Sprintf("SELECT %s FROM (%s)", strings.Join(cols, ", "), from)
}

func alias(expr, name string) string {
	q := quoteIdent(name)
	if expr == q {
		return q
	}
	return expr + " AS " + q
}

func quoteIdent(id string) string {
	return `"` + strings.Replace(id, `"`, `""`, -1) + `"`
}

func quoteAll(ids []string) []string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = quoteIdent(id)
	}
	return quoted
}

func quoteString(s string) string {
	return "'" + strings.Replace(s, "'", "''", -1) + "'"
}

// TableName returns the SQLite name of a table. The project is ignored and
// the dataset, if any, is the schema the table lives in.
func TableName(ref sql.TableRef) string {
	if ref.Dataset == "" {
		return quoteIdent(ref.Table)
	}
	return quoteIdent(ref.Dataset) + "." + quoteIdent(ref.Table)
}
