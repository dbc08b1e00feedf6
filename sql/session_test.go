package sql

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type hashedNode struct {
	Node
	hash uint64
}

func (n hashedNode) Hash() uint64   { return n.hash }
func (n hashedNode) String() string { return fmt.Sprintf("node(%d)", n.hash) }

func TestSessionTrack(t *testing.T) {
	require := require.New(t)

	s := NewSession()
	require.NotEmpty(s.ID())
	require.NotEqual(s.ID(), NewSession().ID())

	a, b := hashedNode{hash: 1}, hashedNode{hash: 2}
	s.Track(a)
	s.Track(b)
	s.Track(hashedNode{hash: 1})
	require.Equal([]Node{a, b}, s.Plans())

	s.Release(a)
	require.Equal([]Node{a, b}, s.Plans())

	s.Release(a)
	require.Equal([]Node{b}, s.Plans())

	s.Release(hashedNode{hash: 3})
	s.Release(b)
	require.Empty(s.Plans())
}

func TestSessionWarnings(t *testing.T) {
	require := require.New(t)

	s := NewSessionWithID("s1")
	require.Equal(SessionID("s1"), s.ID())

	s.Warn(&Warning{Level: "Warning", Code: 1, Message: "first"})
	s.Warn(&Warning{Level: "Warning", Code: 2, Message: "second"})

	ws := s.Warnings()
	require.Len(ws, 2)
	require.Equal("Warning 2: second", ws[1].String())

	s.ClearWarnings()
	require.Empty(s.Warnings())
	require.Len(ws, 2)
}
