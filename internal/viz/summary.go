package viz

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

// FrameStats is one frame name's share of a tree.
type FrameStats struct {
	Name  string `json:"name"`
	Self  int64  `json:"self"`  // samples where this frame was on top of the stack
	Total int64  `json:"total"` // samples where this frame was anywhere on the stack
}

// HotFrames aggregates tree by frame name, hottest self time first.
// Recursive frames count once per stack towards Total.
func HotFrames(tree flamegraph.Tree) []FrameStats {
	if tree.Root == nil {
		return nil
	}

	byName := make(map[string]*FrameStats)
	var walk func(n *flamegraph.Node, onStack map[string]bool)
	walk = func(n *flamegraph.Node, onStack map[string]bool) {
		s, ok := byName[n.Name]
		if !ok {
			s = &FrameStats{Name: n.Name}
			byName[n.Name] = s
		}

		var below int64
		for _, c := range n.Children {
			below += c.Value
		}
		s.Self += max(n.Value-below, 0)

		if !onStack[n.Name] {
			s.Total += n.Value
			onStack[n.Name] = true
			defer delete(onStack, n.Name)
		}
		for _, c := range n.Children {
			walk(c, onStack)
		}
	}
	walk(tree.Root, make(map[string]bool))

	// the synthetic root never runs code of its own
	delete(byName, flamegraph.MultipleRootsName)

	stats := make([]FrameStats, 0, len(byName))
	for _, s := range byName {
		stats = append(stats, *s)
	}
	slices.SortFunc(stats, func(a, b FrameStats) int {
		if c := cmp.Compare(b.Self, a.Self); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return stats
}

// HotFramesSummary renders the top n frames of tree as a horizontal bar chart
// of self samples. n <= 0 shows 10.
func HotFramesSummary(tree flamegraph.Tree, n int) string {
	stats := HotFrames(tree)
	if n <= 0 {
		n = 10
	}
	stats = slices.DeleteFunc(stats, func(s FrameStats) bool { return s.Self == 0 })
	if len(stats) == 0 {
		return ""
	}
	shown := stats[:min(n, len(stats))]

	var b strings.Builder
	fmt.Fprintf(&b, "%s (top %d of %d)\n", titleStyle.Render("Hot frames"), len(shown), len(stats))

	maxSelf := shown[0].Self

	// Find longest name for alignment
	maxNameLen := 0
	for _, s := range shown {
		maxNameLen = max(maxNameLen, len([]rune(s.Name)))
	}
	maxNameLen = min(maxNameLen, 40)

	barWidth := 20
	for _, s := range shown {
		barLen := int(s.Self * int64(barWidth) / maxSelf)
		if barLen < 1 {
			barLen = 1
		}
		bar := strings.Repeat("#", barLen) + strings.Repeat(" ", barWidth-barLen)

		pct := 0.0
		if tree.Root.Value > 0 {
			pct = float64(s.Self) * 100 / float64(tree.Root.Value)
		}
		fmt.Fprintf(&b, "  %s  %s  %s self (%.1f%%)  %s total\n",
			fit(s.Name, maxNameLen), bar, FormatCount(int(s.Self)), pct, FormatCount(int(s.Total)))
	}

	return b.String()
}

// FormatCount formats a sample count with comma separators (e.g. 12,345).
func FormatCount(n int) string {
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatCount(n/1000), n%1000)
}
