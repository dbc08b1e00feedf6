package plan

import (
	"fmt"
	"strings"

	"github.com/frameql/lazyframe/sql"
)

// JoinType is the kind of join.
type JoinType string

const (
	// InnerJoin keeps the rows matching on both sides.
	InnerJoin JoinType = "inner"
	// LeftJoin keeps every row of the left side.
	LeftJoin JoinType = "left"
	// RightJoin keeps every row of the right side.
	RightJoin JoinType = "right"
	// OuterJoin keeps every row of both sides.
	OuterJoin JoinType = "outer"
	// CrossJoin is the cartesian product of both sides.
	CrossJoin JoinType = "cross"
)

// JoinSide is one of the inputs of a join.
type JoinSide int

const (
	// LeftSide is the left input of a join.
	LeftSide JoinSide = iota
	// RightSide is the right input of a join.
	RightSide
)

func (s JoinSide) String() string {
	if s == LeftSide {
		return "left"
	}
	return "right"
}

// JoinCondition is an equality between a left and a right column.
type JoinCondition struct {
	Left  string
	Right string
}

// JoinColumnMapping selects an input column as an output column of the
// join.
type JoinColumnMapping struct {
	Side          JoinSide
	SourceID      string
	DestinationID string
}

// JoinDefinition is the explicit definition of a join.
type JoinDefinition struct {
	Type       JoinType
	Conditions []JoinCondition
	Mappings   []JoinColumnMapping
}

// Join combines the rows of two nodes.
type Join struct {
	base
	Left       sql.Node
	Right      sql.Node
	Definition JoinDefinition
}

type joinParams struct {
	Type       string
	Conditions []string
	Mappings   []string
}

// NewJoin creates a new join of both nodes. Every condition and mapping
// must reference columns of the corresponding side.
func NewJoin(left, right sql.Node, def JoinDefinition) (*Join, error) {
	ls, rs := left.Schema(), right.Schema()

	params := joinParams{Type: string(def.Type)}
	for _, c := range def.Conditions {
		lt, err := ls.TypeOf(c.Left)
		if err != nil {
			return nil, err
		}
		rt, err := rs.TypeOf(c.Right)
		if err != nil {
			return nil, err
		}
		if !lt.Equals(rt) && !(sql.IsNumeric(lt) && sql.IsNumeric(rt)) {
			return nil, sql.ErrInvalidType.New(fmt.Sprintf("cannot join %s on %s with %s on %s", c.Left, lt, c.Right, rt))
		}
		params.Conditions = append(params.Conditions, c.Left+"="+c.Right)
	}

	schema := make(sql.Schema, len(def.Mappings))
	for i, m := range def.Mappings {
		source := ls
		if m.Side == RightSide {
			source = rs
		}
		t, err := source.TypeOf(m.SourceID)
		if err != nil {
			return nil, err
		}
		schema[i] = sql.SchemaItem{ID: m.DestinationID, Type: t}
		params.Mappings = append(params.Mappings, fmt.Sprintf("%s.%s->%s", m.Side, m.SourceID, m.DestinationID))
	}

	n := &Join{Left: left, Right: right, Definition: def}
	err := n.init(n, "Join", params, traits{
		schema:         schema,
		children:       []sql.Node{left, right},
		deterministic:  true,
		rowPreserving:  false,
		nonLocal:       true,
		orderAmbiguous: true,
		varsIntroduced: OverheadVariables,
		relOps:         1,
		joins:          true,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *Join) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 2); err != nil {
		return nil, err
	}
	return NewJoin(children[0], children[1], n.Definition)
}

func (n *Join) String() string {
	pr := sql.NewTreePrinter()
	conds := make([]string, len(n.Definition.Conditions))
	for i, c := range n.Definition.Conditions {
		conds[i] = fmt.Sprintf("%s = %s", c.Left, c.Right)
	}
	_ = pr.WriteNode("Join(%s, on=[%s], %s)", n.Definition.Type, strings.Join(conds, ", "), n.schema)
	_ = pr.WriteChildren(n.Left.String(), n.Right.String())
	return pr.String()
}
