package plan

import (
	"github.com/frameql/lazyframe/sql"
)

// Inspect calls f on the node and, while f returns true, on each of its
// children, depth first. A subtree shared by several parents is inspected
// once per parent.
func Inspect(node sql.Node, f func(sql.Node) bool) {
	if !f(node) {
		return
	}
	for _, child := range node.Children() {
		Inspect(child, f)
	}
}

// TransformFunc is a function that given a node will return that node as
// is or transformed along with an error, if any.
type TransformFunc func(sql.Node) (sql.Node, error)

// TransformChildren returns a node of the same kind as n, with f applied to
// each of its children and every other parameter preserved. The node itself
// is returned when f leaves every child unchanged.
func TransformChildren(n sql.Node, f TransformFunc) (sql.Node, error) {
	children := n.Children()
	if len(children) == 0 {
		return n, nil
	}

	var changed bool
	newChildren := make([]sql.Node, len(children))
	for i, c := range children {
		nc, err := f(c)
		if err != nil {
			return nil, err
		}
		if nc != c {
			changed = true
		}
		newChildren[i] = nc
	}

	if !changed {
		return n, nil
	}

	return n.WithChildren(newChildren...)
}

// TransformUp applies a transformation function to the given tree from the
// bottom up.
func TransformUp(n sql.Node, f TransformFunc) (sql.Node, error) {
	n, err := TransformChildren(n, func(c sql.Node) (sql.Node, error) {
		return TransformUp(c, f)
	})
	if err != nil {
		return nil, err
	}
	return f(n)
}

// Equal returns whether both trees have the same node kinds, with the same
// parameters, in the same shape.
func Equal(a, b sql.Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Hash() != b.Hash() {
		return false
	}

	pa, ok := a.(parameterized)
	if !ok {
		return false
	}
	pb, ok := b.(parameterized)
	if !ok || !pa.sameParams(pb) {
		return false
	}

	ca, cb := a.Children(), b.Children()
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !Equal(ca[i], cb[i]) {
			return false
		}
	}
	return true
}

type parameterized interface {
	sameParams(other parameterized) bool
	nodeKind() string
	nodeParams() interface{}
}
