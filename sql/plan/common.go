package plan

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/mitchellh/hashstructure"

	"github.com/frameql/lazyframe/sql"
)

// OverheadVariables is the number of variables assumed for the bookkeeping
// of joins, concats and cached tables.
const OverheadVariables = 5

// IsUnary returns whether the node is unary or not.
func IsUnary(node sql.Node) bool {
	return len(node.Children()) == 1
}

// traits are the per node properties every node provides, filled in by
// the node constructors.
type traits struct {
	schema   sql.Schema
	children []sql.Node

	deterministic     bool
	rowPreserving     bool
	nonLocal          bool
	orderAmbiguous    bool
	explicitlyOrdered bool

	varsIntroduced int
	relOps         int
	joins          bool

	// session owning the data read by a source node
	session sql.SessionID
}

// base implements the sql.Node properties. Everything is computed once, in
// init, when the node is built.
type base struct {
	traits

	kind   string
	params interface{}

	totalVars   int64
	totalRelOps int64
	totalJoins  int64
	hash        uint64
	roots       []sql.Node
}

type hashInput struct {
	Kind     string
	Params   interface{}
	Children []uint64
}

func (b *base) init(self sql.Node, kind string, params interface{}, t traits) error {
	b.traits = t
	b.kind = kind
	b.params = params

	if err := t.schema.Validate(); err != nil {
		return err
	}

	b.totalVars = int64(t.varsIntroduced)
	b.totalRelOps = int64(t.relOps)
	if t.joins {
		b.totalJoins = 1
	}

	childHashes := make([]uint64, len(t.children))
	sessions := make(map[sql.SessionID]struct{})
	if t.session != "" {
		sessions[t.session] = struct{}{}
	}

	for i, c := range t.children {
		b.totalVars += c.TotalVariables()
		b.totalRelOps += c.TotalRelationalOps()
		b.totalJoins += c.TotalJoins()
		childHashes[i] = c.Hash()
		if s := c.Session(); s != "" {
			sessions[s] = struct{}{}
		}
		b.deterministic = b.deterministic && c.Deterministic()
	}

	switch len(sessions) {
	case 0:
		b.session = ""
	case 1:
		for s := range sessions {
			b.session = s
		}
	default:
		ids := make([]string, 0, len(sessions))
		for s := range sessions {
			ids = append(ids, string(s))
		}
		sort.Strings(ids)
		return sql.ErrSessionConflict.New(ids)
	}

	h, err := hashstructure.Hash(hashInput{kind, params, childHashes}, nil)
	if err != nil {
		return err
	}
	b.hash = h

	if len(t.children) == 0 {
		b.roots = []sql.Node{self}
	} else {
		seen := make(map[uint64]struct{})
		for _, c := range t.children {
			for _, r := range c.Roots() {
				if _, ok := seen[r.Hash()]; ok {
					continue
				}
				seen[r.Hash()] = struct{}{}
				b.roots = append(b.roots, r)
			}
		}
	}

	return nil
}

// Schema implements the sql.Node interface.
func (b *base) Schema() sql.Schema { return b.schema }

// Children implements the sql.Node interface.
func (b *base) Children() []sql.Node { return b.children }

// Deterministic implements the sql.Node interface.
func (b *base) Deterministic() bool { return b.deterministic }

// RowPreserving implements the sql.Node interface.
func (b *base) RowPreserving() bool { return b.rowPreserving }

// NonLocal implements the sql.Node interface.
func (b *base) NonLocal() bool { return b.nonLocal }

// OrderAmbiguous implements the sql.Node interface.
func (b *base) OrderAmbiguous() bool { return b.orderAmbiguous }

// ExplicitlyOrdered implements the sql.Node interface.
func (b *base) ExplicitlyOrdered() bool { return b.explicitlyOrdered }

// VariablesIntroduced implements the sql.Node interface.
func (b *base) VariablesIntroduced() int { return b.varsIntroduced }

// RelationOpsCreated implements the sql.Node interface.
func (b *base) RelationOpsCreated() int { return b.relOps }

// Joins implements the sql.Node interface.
func (b *base) Joins() bool { return b.joins }

// TotalVariables implements the sql.Node interface.
func (b *base) TotalVariables() int64 { return b.totalVars }

// TotalRelationalOps implements the sql.Node interface.
func (b *base) TotalRelationalOps() int64 { return b.totalRelOps }

// TotalJoins implements the sql.Node interface.
func (b *base) TotalJoins() int64 { return b.totalJoins }

// PlanningComplexity implements the sql.Node interface.
func (b *base) PlanningComplexity() int64 {
	return b.totalVars * b.totalRelOps * (1 + b.totalJoins)
}

// Hash implements the sql.Node interface.
func (b *base) Hash() uint64 { return b.hash }

// Roots implements the sql.Node interface.
func (b *base) Roots() []sql.Node { return b.roots }

// Session implements the sql.Node interface.
func (b *base) Session() sql.SessionID { return b.session }

func (b *base) nodeKind() string { return b.kind }

func (b *base) nodeParams() interface{} { return b.params }

func (b *base) sameParams(other parameterized) bool {
	return b.kind == other.nodeKind() && reflect.DeepEqual(b.params, other.nodeParams())
}

// unary returns the traits of a unary node that passes its child through.
func unary(child sql.Node) traits {
	return traits{
		schema:            child.Schema(),
		children:          []sql.Node{child},
		deterministic:     true,
		rowPreserving:     true,
		orderAmbiguous:    child.OrderAmbiguous(),
		explicitlyOrdered: child.ExplicitlyOrdered(),
		relOps:            1,
	}
}

// UnaryNode is a node that has only one child.
type UnaryNode struct {
	Child sql.Node
}

func checkChildren(n sql.Node, children []sql.Node, expected int) error {
	if len(children) != expected {
		return sql.ErrInvalidChildrenNumber.New(n, len(children), expected)
	}
	return nil
}

func schemaStrings(s sql.Schema) []string {
	items := make([]string, len(s))
	for i, item := range s {
		items[i] = item.String()
	}
	return items
}

func physicalStrings(s sql.PhysicalSchema) []string {
	items := make([]string, len(s))
	for i, c := range s {
		items[i] = c.Name + ":" + c.Type.String()
	}
	return items
}

// numRowsString renders the row count of table metadata, empty if unknown.
func numRowsString(t sql.TableMetadata) string {
	if t.NumRows == nil {
		return ""
	}
	return strconv.FormatInt(*t.NumRows, 10)
}

func clusterColumns(t sql.TableMetadata) []string {
	if len(t.ClusterColumns) == 0 {
		return nil
	}
	return t.ClusterColumns
}

func exprStrings(exprs []sql.Expression) []string {
	items := make([]string, len(exprs))
	for i, e := range exprs {
		items[i] = e.String()
	}
	return items
}

func orderingStrings(keys []sql.OrderingExpression) []string {
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = k.String()
	}
	return items
}
