package analyzer

import (
	"math"

	"github.com/frameql/lazyframe/sql"
)

// Heuristic scores a caching candidate from its planning complexity and the
// number of times it occurs in the plan. Higher is better.
type Heuristic func(complexity int64, count int) float64

// DefaultHeuristic favours complex subtrees and, more strongly, subtrees
// that are repeated.
func DefaultHeuristic(complexity int64, count int) float64 {
	return math.Log(float64(complexity)) + 2*math.Log(float64(count))
}

// CountNodes returns how many times each distinct subtree, identified by its
// structural hash, occurs in the given trees. A subtree shared by several
// parents counts once per path from a root.
func CountNodes(forest ...sql.Node) map[uint64]int {
	return countPaths(forest, func(sql.Node) bool { return true })
}

// countPaths counts the paths from the roots of the forest to every distinct
// subtree, descending only into subtrees accepted by include.
func countPaths(forest []sql.Node, include func(sql.Node) bool) map[uint64]int {
	var order []sql.Node
	visited := make(map[uint64]bool)

	var visit func(sql.Node)
	visit = func(n sql.Node) {
		h := n.Hash()
		if visited[h] {
			return
		}
		visited[h] = true
		for _, c := range n.Children() {
			if include(c) {
				visit(c)
			}
		}
		order = append(order, n)
	}

	counts := make(map[uint64]int)
	for _, root := range forest {
		if !include(root) {
			continue
		}
		visit(root)
		counts[root.Hash()]++
	}

	// Reverse post order visits every parent before its children.
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		paths := counts[n.Hash()]
		for _, c := range n.Children() {
			if include(c) {
				counts[c.Hash()] += paths
			}
		}
	}

	return counts
}

type totals struct {
	vars, ops, joins int64
}

func (t totals) complexity() int64 {
	return t.vars * t.ops * (1 + t.joins)
}

// cachedComplexity returns the planning complexity of a subtree after
// substituting every cached subtree in it, memoizing by hash.
type cachedComplexity struct {
	lookup Lookup
	memo   map[uint64]totals
}

func newCachedComplexity(lookup Lookup) *cachedComplexity {
	return &cachedComplexity{lookup: lookup, memo: make(map[uint64]totals)}
}

func (c *cachedComplexity) totals(n sql.Node) totals {
	h := n.Hash()
	if t, ok := c.memo[h]; ok {
		return t
	}

	var t totals
	if r, ok := c.lookup(h); ok {
		t = totals{r.TotalVariables(), r.TotalRelationalOps(), r.TotalJoins()}
	} else {
		t.vars = int64(n.VariablesIntroduced())
		t.ops = int64(n.RelationOpsCreated())
		if n.Joins() {
			t.joins = 1
		}
		for _, child := range n.Children() {
			ct := c.totals(child)
			t.vars += ct.vars
			t.ops += ct.ops
			t.joins += ct.joins
		}
	}

	c.memo[h] = t
	return t
}

func (c *cachedComplexity) of(n sql.Node) int64 {
	return c.totals(n).complexity()
}

// SelectCacheTarget returns the subtree of root that is most worth caching,
// or nil if there is none. Candidates are the distinct subtrees whose
// complexity, once the subtrees known to lookup are substituted, lies in
// [minComplexity, maxComplexity]. Subtrees below the minimum and subtrees
// that are already cached are not explored further. The candidate with the
// highest heuristic score wins, ties going to the first candidate found
// walking the tree depth first.
func SelectCacheTarget(
	root sql.Node,
	minComplexity, maxComplexity int64,
	lookup Lookup,
	heuristic Heuristic,
) sql.Node {
	if heuristic == nil {
		heuristic = DefaultHeuristic
	}

	cc := newCachedComplexity(lookup)
	explore := func(n sql.Node) bool {
		if _, ok := lookup(n.Hash()); ok {
			return false
		}
		return cc.of(n) >= minComplexity
	}
	counts := countPaths([]sql.Node{root}, explore)

	var (
		best      sql.Node
		bestScore float64
		seen      = make(map[uint64]bool)
	)

	var visit func(sql.Node)
	visit = func(n sql.Node) {
		h := n.Hash()
		if seen[h] {
			return
		}
		seen[h] = true

		if !explore(n) {
			return
		}
		complexity := cc.of(n)

		if complexity <= maxComplexity {
			score := heuristic(complexity, counts[h])
			if best == nil || score > bestScore {
				best, bestScore = n, score
			}
		}

		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(root)

	return best
}
