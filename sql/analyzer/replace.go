// Package analyzer holds the functions that inspect and rewrite plans
// before they are executed.
package analyzer

import (
	"github.com/frameql/lazyframe/sql"
	"github.com/frameql/lazyframe/sql/plan"
)

// Lookup returns the replacement registered for the subtree with the given
// structural hash, if any.
type Lookup func(hash uint64) (sql.Node, bool)

// NoReplacements is a Lookup without any replacement.
func NoReplacements(uint64) (sql.Node, bool) {
	return nil, false
}

// MapLookup returns a Lookup backed by a map.
func MapLookup(m map[uint64]sql.Node) Lookup {
	return func(hash uint64) (sql.Node, bool) {
		n, ok := m[hash]
		return n, ok
	}
}

// ReplaceNodes returns a tree where every subtree with a registered
// replacement is replaced. Subtrees are matched top down by structural
// hash, so the interior of a replaced subtree is never rewritten. Subtrees
// shared by several parents are rewritten only once.
func ReplaceNodes(root sql.Node, lookup Lookup) (sql.Node, error) {
	memo := make(map[uint64]sql.Node)

	var replace func(sql.Node) (sql.Node, error)
	replace = func(n sql.Node) (sql.Node, error) {
		h := n.Hash()
		if r, ok := memo[h]; ok {
			return r, nil
		}

		r, ok := lookup(h)
		if !ok {
			var err error
			r, err = plan.TransformChildren(n, replace)
			if err != nil {
				return nil, err
			}
		}

		memo[h] = r
		return r, nil
	}

	return replace(root)
}
