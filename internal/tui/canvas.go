package tui

import (
	"sync"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
	"github.com/tobert/trace-flamegraph/internal/view"
)

// canvas receives one view's render and error callbacks. Those run on the
// view's fetch goroutine, so the model only reads it under the lock.
type canvas struct {
	mu      sync.Mutex
	tree    flamegraph.Tree
	drawn   bool
	tooltip bool
	err     error
}

func (c *canvas) Render(tree flamegraph.Tree, size view.Size) view.Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tree = tree
	c.drawn = true
	c.tooltip = true
	return view.OverlayFunc(func() {
		c.mu.Lock()
		c.tooltip = false
		c.mu.Unlock()
	})
}

func (c *canvas) Report(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

type snapshot struct {
	tree    flamegraph.Tree
	drawn   bool
	tooltip bool
	err     error
}

func (c *canvas) snapshot() snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot{tree: c.tree, drawn: c.drawn, tooltip: c.tooltip, err: c.err}
}
