package viz

import (
	"fmt"
	"strings"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

const (
	maxLevels    = 60
	defaultWidth = 120
)

// frame is one node placed on a row.
type frame struct {
	node  *flamegraph.Node
	start int // column
	width int // columns
	path  []string
}

// layout places frames level by level, root first. Each child gets a share
// of its parent's columns proportional to its sample count; frames that
// would be narrower than one column are dropped along with their subtrees.
func layout(root *flamegraph.Node, width int) [][]frame {
	if root == nil {
		return nil
	}
	total := max(root.Value, 1)

	levels := [][]frame{{{node: root, start: 0, width: width, path: []string{root.Name}}}}
	for len(levels) < maxLevels+1 {
		var next []frame
		for _, parent := range levels[len(levels)-1] {
			col := parent.start
			for _, child := range parent.node.Children {
				w := int(child.Value * int64(width) / total)
				// Children never spill past their parent, even if the backend
				// reports more samples below than above.
				w = min(w, parent.start+parent.width-col)
				if w < 1 {
					continue
				}
				path := append(append([]string{}, parent.path...), child.Name)
				next = append(next, frame{node: child, start: col, width: w, path: path})
				col += w
			}
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
	}
	return levels
}

// FlameGraph renders tree as an icicle chart, root on top, with each frame as
// wide as its share of the root's samples. Width is in columns; 0 uses a
// sensible default.
func FlameGraph(tree flamegraph.Tree, width int) string {
	if tree.Root == nil {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}

	levels := layout(tree.Root, width)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s samples, %d levels)\n",
		titleStyle.Render("Flame graph"), FormatCount(int(tree.Root.Value)), tree.Height)

	overflow := 0
	if len(levels) > maxLevels {
		overflow = max(tree.Height, len(levels)) - maxLevels
		levels = levels[:maxLevels]
	}

	for depth, row := range levels {
		renderRow(&b, row, depth, width)
	}

	if overflow > 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("... +%d more levels", overflow)))
	}

	return b.String()
}

func renderRow(b *strings.Builder, row []frame, depth, width int) {
	col := 0
	for i, f := range row {
		if f.start > col {
			b.WriteString(strings.Repeat(" ", f.start-col))
		}
		b.WriteString(frameStyle(depth, i).Render(frameLabel(f.node.Name, f.width)))
		col = f.start + f.width
	}
	if col < width {
		b.WriteString(strings.Repeat(" ", width-col))
	}
	b.WriteByte('\n')
}

// frameLabel fits name into exactly w columns, starting with a '|' separator.
func frameLabel(name string, w int) string {
	if w <= 1 {
		return "|"
	}
	return "|" + fit(name, w-1)
}

// fit truncates s with an ellipsis or pads it with spaces to exactly w runes.
func fit(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		if w == 1 {
			return "…"
		}
		return string(r[:w-1]) + "…"
	}
	return s + strings.Repeat(" ", w-len(r))
}

// Tooltip describes the widest frame on the given level: its call path,
// sample count, and share of the root. Level 0 is the root.
func Tooltip(tree flamegraph.Tree, level int) string {
	if tree.Root == nil || level < 0 {
		return ""
	}

	levels := layout(tree.Root, flamegraph.ChartWidth)
	if level >= len(levels) {
		return ""
	}

	widest := levels[level][0]
	for _, f := range levels[level][1:] {
		if f.node.Value > widest.node.Value {
			widest = f
		}
	}

	pct := 0.0
	if tree.Root.Value > 0 {
		pct = float64(widest.node.Value) * 100 / float64(tree.Root.Value)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", labelStyle.Render(strings.Join(widest.path, " → ")))
	fmt.Fprintf(&b, "  %s  %s samples (%.1f%%)", valueStyle.Render(widest.node.Name), FormatCount(int(widest.node.Value)), pct)
	if n := len(levels[level]); n > 1 {
		fmt.Fprintf(&b, "  %s", dimStyle.Render(fmt.Sprintf("[%d frames on level %d]", n, level)))
	}
	return b.String()
}

// Levels reports how many rows FlameGraph would draw for tree at width.
func Levels(tree flamegraph.Tree, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	return min(len(layout(tree.Root, width)), maxLevels)
}
