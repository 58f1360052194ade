// Package history keeps a bounded record of recently loaded flame-graph views
// so the web UI and MCP tools can list what was looked at.
package history

import (
	"slices"
	"time"

	"github.com/tobert/trace-flamegraph/internal/view"
)

// DefaultCapacity is how many entries a History keeps unless told otherwise.
const DefaultCapacity = 100

// Entry is the outcome of one finished view.
type Entry struct {
	At       time.Time   `json:"at"`
	Params   view.Params `json:"params"`
	State    string      `json:"state"`
	Samples  int64       `json:"samples,omitempty"`
	Height   int         `json:"height,omitempty"`
	Error    string      `json:"error,omitempty"`
	Duration float64     `json:"duration_ms"`
}

// History is safe for concurrent use.
type History struct {
	entries *ring[Entry]
	now     func() time.Time
}

// New creates a History holding at most capacity entries.
func New(capacity int) *History {
	return &History{entries: newRing[Entry](capacity), now: time.Now}
}

// Record appends the outcome of v, which should be loaded. started is when
// the view was entered.
func (h *History) Record(v *view.View, started time.Time) Entry {
	e := Entry{
		At:       h.now(),
		Params:   v.Params(),
		State:    v.State().String(),
		Duration: float64(h.now().Sub(started).Microseconds()) / 1000,
	}
	if tree, ok := v.Tree(); ok {
		e.Samples = tree.Root.Value
		e.Height = tree.Height
	}
	if err := v.ParseError(); err != nil {
		e.Error = err.Error()
	} else if err := v.FetchError(); err != nil {
		e.Error = err.Error()
	}

	h.entries.add(e)
	return e
}

// Recent returns up to n entries, newest first. n <= 0 returns everything.
func (h *History) Recent(n int) []Entry {
	all := h.entries.all()
	slices.Reverse(all)
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Len reports how many entries are held.
func (h *History) Len() int {
	return h.entries.len()
}

// Clear drops every entry.
func (h *History) Clear() {
	h.entries.clear()
}
