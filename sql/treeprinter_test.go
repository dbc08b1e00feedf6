package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const expectedTree = `Projection(a, b)
 ├─ Join
 │   ├─ ReadTable(p.d.left)
 │   └─ ReadTable(p.d.right)
 └─ Concat
     ├─ ReadLocal(3 rows)
     └─ CachedTable(p.d.tmp)
`

func TestTreePrinter(t *testing.T) {
	require := require.New(t)

	p := NewTreePrinter()
	require.NoError(p.WriteNode("Projection(%s, %s)", "a", "b"))

	p2 := NewTreePrinter()
	require.NoError(p2.WriteNode("Join"))
	require.NoError(p2.WriteChildren(
		"ReadTable(p.d.left)",
		"ReadTable(p.d.right)",
	))

	p3 := NewTreePrinter()
	require.NoError(p3.WriteNode("Concat"))
	require.NoError(p3.WriteChildren(
		"ReadLocal(3 rows)",
		"CachedTable(p.d.tmp)",
	))

	require.NoError(p.WriteChildren(
		p2.String(),
		p3.String(),
	))

	require.Equal(expectedTree, p.String())
}

func TestTreePrinterErrors(t *testing.T) {
	require := require.New(t)

	p := NewTreePrinter()
	err := p.WriteChildren("child")
	require.True(ErrNodeNotWritten.Is(err))

	require.NoError(p.WriteNode("node"))
	err = p.WriteNode("node")
	require.True(ErrNodeAlreadyWritten.Is(err))
}
