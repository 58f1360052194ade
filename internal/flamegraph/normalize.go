package flamegraph

// Normalize collapses a forest into one rooted tree.
//
// An empty forest returns ok == false: there is nothing to draw, which is not
// an error. A single root is used as-is. Multiple roots are placed under a
// virtual root whose value is the forest's TotalSampleCount as reported by
// the backend, not a sum of the children, and the height grows by one level.
func Normalize(f Forest) (tree Tree, ok bool) {
	switch len(f.RootNodes) {
	case 0:
		return Tree{}, false
	case 1:
		return Tree{Root: f.RootNodes[0], Height: f.Height}, true
	}

	children := make([]*Node, len(f.RootNodes))
	copy(children, f.RootNodes)

	return Tree{
		Root: &Node{
			Name:     MultipleRootsName,
			Value:    f.TotalSampleCount,
			Children: children,
		},
		Height: f.Height + 1,
	}, true
}
