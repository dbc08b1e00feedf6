package analyzer

import (
	"sort"

	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/expression"
	"github.com/frameql/lazyframe/sql/plan"
)

// SessionAwareCachePlan decides what to materialize when the user asks to
// cache root, considering every live plan of the session in forest.
//
// Filters and projections are cheap to recompute, so the target moves down
// through them to the descendant referenced the most across the session.
// Filter predicates above the target are rebound to the target's columns and
// the columns they compare against constants are returned, sorted and
// capped at maxClusterCols, as cluster candidates for the materialization.
func SessionAwareCachePlan(root sql.Node, forest []sql.Node, maxClusterCols int) (sql.Node, []string, error) {
	counts := CountNodes(forest...)

	target := root
	targetRefs := counts[root.Hash()]
	var clusterCols []string

	var filters []sql.Expression
	cur := root
	for {
		switch n := cur.(type) {
		case *plan.Filter:
			filters = append(filters, n.Predicate)
			cur = n.Child
		case *plan.Projection:
			bindings := n.Bindings()
			for i, f := range filters {
				bound, err := expression.BindVariables(f, bindings)
				if err != nil {
					return nil, nil, err
				}
				filters[i] = bound
			}
			cur = n.Child
		default:
			return target, capColumns(clusterCols, maxClusterCols), nil
		}

		refs := counts[cur.Hash()]
		if refs > targetRefs {
			target, targetRefs = cur, refs
			clusterCols = nil
			for _, f := range filters {
				if cols := clusterCandidates(f, cur.Schema()); len(cols) > 0 {
					clusterCols = cols
					break
				}
			}
		}
	}
}

// clusterCandidates returns the sorted columns of the schema that are
// compared against a constant by the predicate or any of its conjuncts.
func clusterCandidates(pred sql.Expression, schema sql.Schema) []string {
	set := make(map[string]struct{})
	for _, conjunct := range expression.SplitConjunction(pred) {
		cmp, ok := conjunct.(expression.Comparer)
		if !ok {
			continue
		}

		left, right := cmp.Operands()
		col, ok := left.(sql.ColumnReferencer)
		other := right
		if !ok {
			col, ok = right.(sql.ColumnReferencer)
			other = left
		}
		if !ok || !expression.IsConstant(other) {
			continue
		}

		typ, err := schema.TypeOf(col.ColumnID())
		if err != nil || !sql.IsClusterable(typ) {
			continue
		}
		set[col.ColumnID()] = struct{}{}
	}

	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func capColumns(cols []string, max int) []string {
	if max >= 0 && len(cols) > max {
		return cols[:max]
	}
	return cols
}
