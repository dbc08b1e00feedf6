package plan

import (
	"fmt"
	"strings"

	"github.com/frameql/lazyframe/sql"
)

// AggregateAssignment binds the result of an aggregation to an output
// column.
type AggregateAssignment struct {
	Agg sql.Aggregation
	ID  string
}

// Aggregate groups the rows of its child by some columns and computes
// aggregations over every group. The output has the grouping columns
// followed by the aggregations, one row per group.
type Aggregate struct {
	base
	UnaryNode
	Aggregations []AggregateAssignment
	By           []string
	// DropNA drops the groups where any grouping column is null.
	DropNA bool
}

type aggregateParams struct {
	Aggregations []string
	By           []string
	DropNA       bool
}

// NewAggregate creates a new Aggregate node.
func NewAggregate(aggs []AggregateAssignment, by []string, dropNA bool, child sql.Node) (*Aggregate, error) {
	input := child.Schema()
	schema := make(sql.Schema, 0, len(by)+len(aggs))
	for _, id := range by {
		typ, err := input.TypeOf(id)
		if err != nil {
			return nil, err
		}
		if !sql.IsOrderable(typ) {
			return nil, sql.ErrInvalidType.New(fmt.Sprintf("cannot group by %s of type %s", id, typ))
		}
		schema = append(schema, sql.SchemaItem{ID: id, Type: typ})
	}

	params := aggregateParams{By: append([]string(nil), by...), DropNA: dropNA}
	for _, a := range aggs {
		typ, err := a.Agg.Type(input)
		if err != nil {
			return nil, err
		}
		schema = append(schema, sql.SchemaItem{ID: a.ID, Type: typ})
		params.Aggregations = append(params.Aggregations, a.Agg.String()+" AS "+a.ID)
	}

	t := unary(child)
	t.schema = schema
	t.rowPreserving = false
	t.nonLocal = true
	t.explicitlyOrdered = false
	t.varsIntroduced = len(aggs) + len(by)

	n := &Aggregate{
		UnaryNode:    UnaryNode{child},
		Aggregations: append([]AggregateAssignment(nil), aggs...),
		By:           params.By,
		DropNA:       dropNA,
	}
	if err := n.init(n, "Aggregate", params, t); err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *Aggregate) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewAggregate(n.Aggregations, n.By, n.DropNA, children[0])
}

func (n *Aggregate) String() string {
	pr := sql.NewTreePrinter()
	aggs := make([]string, len(n.Aggregations))
	for i, a := range n.Aggregations {
		aggs[i] = fmt.Sprintf("%s AS %s", a.Agg, a.ID)
	}
	_ = pr.WriteNode("Aggregate(by=[%s], %s, dropna=%t)", strings.Join(n.By, ", "), strings.Join(aggs, ", "), n.DropNA)
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
