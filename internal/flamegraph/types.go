// Package flamegraph holds the call-tree model returned by the trace
// flame-graph endpoint, the query used to request it, and the normalization
// that turns the backend's forest into a single renderable tree.
package flamegraph

const (
	// MultipleRootsName names the virtual root synthesized over a multi-root forest.
	MultipleRootsName = "<multiple root nodes>"

	// RowHeight is the pixel height of one flame-graph level.
	RowHeight = 18

	// ChartWidth is the pixel width handed to renderers.
	ChartWidth = 960
)

// Node is one frame of the sampled call tree.
// Value is the number of samples that passed through this frame.
type Node struct {
	Name     string  `json:"name"`
	Value    int64   `json:"value"`
	Children []*Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Depth returns the number of levels in the subtree rooted at n.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range n.Children {
		deepest = max(deepest, c.Depth())
	}
	return deepest + 1
}

// Forest is the raw response of the flame-graph endpoint.
type Forest struct {
	RootNodes        []*Node `json:"rootNodes"`
	Height           int     `json:"height"`
	TotalSampleCount int64   `json:"totalSampleCount"`
}

// Tree is a single-rooted call tree ready for rendering.
type Tree struct {
	Root   *Node `json:"root"`
	Height int   `json:"height"`
}

// PixelHeight is the chart height renderers should reserve for the tree.
func (t Tree) PixelHeight() int {
	return t.Height * RowHeight
}
