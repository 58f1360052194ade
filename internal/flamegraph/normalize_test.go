package flamegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Empty(t *testing.T) {
	for _, f := range []Forest{
		{},
		{RootNodes: []*Node{}, Height: 7, TotalSampleCount: 300},
	} {
		tree, ok := Normalize(f)
		assert.False(t, ok)
		assert.Nil(t, tree.Root)
	}
}

func TestNormalize_SingleRoot(t *testing.T) {
	a := &Node{Name: "root", Value: 100, Children: []*Node{{Name: "child", Value: 60}}}

	tree, ok := Normalize(Forest{RootNodes: []*Node{a}, Height: 3, TotalSampleCount: 999})
	require.True(t, ok)

	assert.Same(t, a, tree.Root, "single root must be used verbatim")
	assert.Equal(t, 3, tree.Height)
	assert.Equal(t, 54, tree.PixelHeight())
}

func TestNormalize_MultipleRoots(t *testing.T) {
	a := &Node{Name: "a", Value: 40}
	b := &Node{Name: "b", Value: 50}

	// Total deliberately differs from a+b: the backend's count wins.
	tree, ok := Normalize(Forest{RootNodes: []*Node{a, b}, Height: 4, TotalSampleCount: 120})
	require.True(t, ok)

	assert.Equal(t, MultipleRootsName, tree.Root.Name)
	assert.Equal(t, int64(120), tree.Root.Value)
	require.Len(t, tree.Root.Children, 2)
	assert.Same(t, a, tree.Root.Children[0])
	assert.Same(t, b, tree.Root.Children[1])
	assert.Equal(t, 5, tree.Height)
}

func TestNormalize_DoesNotAliasForestSlice(t *testing.T) {
	roots := []*Node{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	tree, ok := Normalize(Forest{RootNodes: roots, Height: 1})
	require.True(t, ok)

	roots[0] = &Node{Name: "replaced"}
	assert.Equal(t, "a", tree.Root.Children[0].Name)
}

func TestNodeDepth(t *testing.T) {
	n := &Node{Name: "r", Children: []*Node{
		{Name: "a"},
		{Name: "b", Children: []*Node{{Name: "c", Children: []*Node{{Name: "d"}}}}},
	}}
	assert.Equal(t, 4, n.Depth())
	assert.Equal(t, 0, (*Node)(nil).Depth())
	assert.True(t, n.Children[0].IsLeaf())
	assert.False(t, n.IsLeaf())
}
