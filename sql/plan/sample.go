package plan

import (
	"github.com/frameql/lazyframe/sql"
)

// RandomSample keeps a random fraction of the rows of its child.
type RandomSample struct {
	base
	UnaryNode
	Fraction float64
}

type randomSampleParams struct {
	Fraction float64
}

// NewRandomSample creates a new RandomSample node. The fraction must be in
// (0, 1].
func NewRandomSample(fraction float64, child sql.Node) (*RandomSample, error) {
	if !(fraction > 0 && fraction <= 1) {
		return nil, sql.ErrInvalidSampleFraction.New(fraction)
	}

	t := unary(child)
	t.deterministic = false
	t.rowPreserving = false
	t.varsIntroduced = 1

	n := &RandomSample{UnaryNode: UnaryNode{child}, Fraction: fraction}
	if err := n.init(n, "RandomSample", randomSampleParams{fraction}, t); err != nil {
		return nil, err
	}
	return n, nil
}

// WithChildren implements the sql.Node interface.
func (n *RandomSample) WithChildren(children ...sql.Node) (sql.Node, error) {
	if err := checkChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewRandomSample(n.Fraction, children[0])
}

func (n *RandomSample) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("RandomSample(%v)", n.Fraction)
	_ = pr.WriteChildren(n.Child.String())
	return pr.String()
}
