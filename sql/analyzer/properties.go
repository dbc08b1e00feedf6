package analyzer

import (
	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/plan"
)

// LocalOnly returns whether every source of the plan is local data.
func LocalOnly(n sql.Node) bool {
	for _, r := range n.Roots() {
		if _, ok := r.(*plan.ReadLocal); !ok {
			return false
		}
	}
	return true
}

// CanFastPeek returns whether a few arbitrary rows of the plan can be read
// without evaluating all of it: the plan reads only local data, or no node
// needs to see several rows at once.
func CanFastPeek(n sql.Node) bool {
	return everySubtree(n, func(n sql.Node) bool { return !n.NonLocal() })
}

// CanFastHead returns whether the first rows of the plan can be read
// cheaply. That's only possible for materialized tables clustered on their
// offsets, read through projections.
func CanFastHead(n sql.Node) bool {
	switch n := n.(type) {
	case *plan.CachedTable:
		col, ok := n.Ordering.IsOffsetOrdering()
		if !ok {
			return false
		}
		for _, c := range n.Table.ClusterColumns {
			if c == col {
				return true
			}
		}
		return false
	case *plan.Projection:
		return CanFastHead(n.Child)
	case *plan.Reproject:
		return CanFastHead(n.Child)
	default:
		return false
	}
}

// RowCount returns the number of rows of the plan if it's known without
// running any query.
func RowCount(n sql.Node) (int64, bool) {
	switch n := n.(type) {
	case *plan.ReadLocal:
		return n.NumRows(), true
	case *plan.CachedTable:
		if n.Table.NumRows == nil {
			return 0, false
		}
		return *n.Table.NumRows, true
	case *plan.ReadTable:
		src := n.Source
		if src.Table.NumRows == nil || src.AtTime != nil || src.Predicate != "" {
			return 0, false
		}
		return *src.Table.NumRows, true
	case *plan.RowCount:
		return 1, true
	case *plan.Concat:
		var total int64
		for _, c := range n.Children() {
			count, ok := RowCount(c)
			if !ok {
				return 0, false
			}
			total += count
		}
		return total, true
	}

	if plan.IsUnary(n) && n.RowPreserving() {
		return RowCount(n.Children()[0])
	}
	return 0, false
}

// IsTriviallyExecutable returns whether evaluating the plan is so cheap that
// materializing it is not worth it.
func IsTriviallyExecutable(n sql.Node) bool {
	return everySubtree(n, func(n sql.Node) bool {
		return !n.NonLocal() && n.RowPreserving()
	})
}

// everySubtree returns whether ok holds for every node of the plan, not
// looking into subtrees that read only local data.
func everySubtree(root sql.Node, ok func(sql.Node) bool) bool {
	result := true
	plan.Inspect(root, func(n sql.Node) bool {
		if !result || LocalOnly(n) {
			return false
		}
		if !ok(n) {
			result = false
		}
		return result
	})
	return result
}
