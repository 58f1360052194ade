package viz

import (
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

// Column assertions below count runes, so keep styling out of the output.
func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func sampleTree() flamegraph.Tree {
	return flamegraph.Tree{
		Root: &flamegraph.Node{Name: "main", Value: 100, Children: []*flamegraph.Node{
			{Name: "handler", Value: 75, Children: []*flamegraph.Node{
				{Name: "db.Query", Value: 50},
				{Name: "json.Marshal", Value: 20},
			}},
			{Name: "gc", Value: 20},
			{Name: "tiny", Value: 0},
		}},
		Height: 3,
	}
}

func TestFlameGraph_Empty(t *testing.T) {
	if result := FlameGraph(flamegraph.Tree{}, 80); result != "" {
		t.Errorf("expected empty string for empty tree, got %q", result)
	}
}

func TestFlameGraph_Layout(t *testing.T) {
	result := FlameGraph(sampleTree(), 100)
	lines := strings.Split(strings.TrimSuffix(result, "\n"), "\n")

	if !strings.Contains(lines[0], "100 samples") || !strings.Contains(lines[0], "3 levels") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if len(lines) != 4 { // header + 3 levels
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), result)
	}
	for i, line := range lines[1:] {
		if n := len([]rune(line)); n != 100 {
			t.Errorf("level %d is %d columns wide, want 100: %q", i, n, line)
		}
	}
	if !strings.HasPrefix(lines[1], "|main") {
		t.Errorf("root row should start with main: %q", lines[1])
	}
	// handler takes 75 columns, gc starts right after it
	if idx := strings.Index(lines[2], "|gc"); idx != 75 {
		t.Errorf("expected gc at column 75, got %d: %q", idx, lines[2])
	}
	if strings.Contains(result, "tiny") {
		t.Errorf("zero-sample frame should not be drawn:\n%s", result)
	}
	if !strings.HasPrefix(lines[3], "|db.Query") {
		t.Errorf("expected db.Query under handler: %q", lines[3])
	}
}

func TestFlameGraph_TruncatesLongNames(t *testing.T) {
	tree := flamegraph.Tree{
		Root: &flamegraph.Node{Name: "root", Value: 10, Children: []*flamegraph.Node{
			{Name: "com.example.very.long.package.name.Class.method", Value: 1},
		}},
		Height: 2,
	}
	result := FlameGraph(tree, 100)
	if !strings.Contains(result, "|com.exam…") {
		t.Errorf("expected truncated label, got:\n%s", result)
	}
}

func TestFlameGraph_ChildrenClampedToParent(t *testing.T) {
	tree := flamegraph.Tree{
		Root: &flamegraph.Node{Name: "root", Value: 10, Children: []*flamegraph.Node{
			{Name: "a", Value: 8},
			{Name: "b", Value: 8}, // overlapping sample semantics: more below than above
		}},
		Height: 2,
	}
	lines := strings.Split(FlameGraph(tree, 50), "\n")
	if n := len([]rune(lines[2])); n != 50 {
		t.Errorf("child row overflowed: %d columns: %q", n, lines[2])
	}
}

func TestFlameGraph_DefaultWidth(t *testing.T) {
	lines := strings.Split(FlameGraph(sampleTree(), 0), "\n")
	if n := len([]rune(lines[1])); n != defaultWidth {
		t.Errorf("expected default width %d, got %d", defaultWidth, n)
	}
}

func TestFlameGraph_DeepTreeCapped(t *testing.T) {
	root := &flamegraph.Node{Name: "d0", Value: 1}
	cur := root
	for i := 1; i < maxLevels+10; i++ {
		child := &flamegraph.Node{Name: "d", Value: 1}
		cur.Children = []*flamegraph.Node{child}
		cur = child
	}
	result := FlameGraph(flamegraph.Tree{Root: root, Height: maxLevels + 10}, 40)
	if !strings.Contains(result, "+10 more levels") {
		t.Errorf("expected overflow marker, got tail:\n%s", result[len(result)-200:])
	}
	if got := Levels(flamegraph.Tree{Root: root}, 40); got != maxLevels {
		t.Errorf("Levels = %d, want %d", got, maxLevels)
	}
}

func TestTooltip(t *testing.T) {
	tree := sampleTree()

	root := Tooltip(tree, 0)
	if !strings.Contains(root, "main") || !strings.Contains(root, "100.0%") {
		t.Errorf("unexpected root tooltip: %q", root)
	}

	l2 := Tooltip(tree, 2)
	if !strings.Contains(l2, "main → handler → db.Query") {
		t.Errorf("expected call path, got %q", l2)
	}
	if !strings.Contains(l2, "50 samples (50.0%)") {
		t.Errorf("expected share, got %q", l2)
	}
	if !strings.Contains(l2, "[2 frames on level 2]") {
		t.Errorf("expected frame count, got %q", l2)
	}

	if Tooltip(tree, 9) != "" || Tooltip(tree, -1) != "" {
		t.Error("expected empty tooltip for out-of-range level")
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		in   string
		w    int
		want string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"abc", 1, "…"},
		{"héllo", 5, "héllo"},
	}
	for _, tt := range tests {
		if got := fit(tt.in, tt.w); got != tt.want {
			t.Errorf("fit(%q, %d) = %q, want %q", tt.in, tt.w, got, tt.want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1_234_567, "1,234,567"},
		{1_000_000_000, "1,000,000,000"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
