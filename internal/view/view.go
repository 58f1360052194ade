// Package view drives one trace flame-graph view from entry to teardown:
// it parses the filter, issues a single fetch, hands the normalized tree to a
// renderer, and removes whatever the renderer left behind when destroyed.
package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tobert/trace-flamegraph/internal/fetcher"
	"github.com/tobert/trace-flamegraph/internal/filter"
	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

const (
	// DefaultTitle is the view's page title.
	DefaultTitle = "Transactions · trace-flamegraph"

	// DefaultNavItem is the navigation entry highlighted while the view is shown.
	DefaultNavItem = "transaction"
)

// errNoResult is reported when a fetcher closes its channel without a result.
var errNoResult = errors.New("fetch ended without a result")

// State is a view's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoadedWithData
	StateLoadedNoData
	StateLoadedParseError
	StateLoadedFetchError
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoadedWithData:
		return "loaded"
	case StateLoadedNoData:
		return "no-data"
	case StateLoadedParseError:
		return "parse-error"
	case StateLoadedFetchError:
		return "fetch-error"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loaded reports whether s is one of the terminal loaded states.
func (s State) Loaded() bool {
	return s >= StateLoadedWithData && s <= StateLoadedFetchError
}

// Size is the drawing area handed to a Renderer, in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Overlay is something a renderer created outside its own drawing area,
// such as a hover tooltip, that must be removed explicitly.
type Overlay interface {
	Remove()
}

// OverlayFunc adapts a function to Overlay.
type OverlayFunc func()

// Remove calls f.
func (f OverlayFunc) Remove() {
	if f != nil {
		f()
	}
}

// Renderer draws a finished tree. It is called with the view's lock held
// and must not call back into the View.
type Renderer interface {
	Render(tree flamegraph.Tree, size Size) Overlay
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(tree flamegraph.Tree, size Size) Overlay

// Render calls f.
func (f RendererFunc) Render(tree flamegraph.Tree, size Size) Overlay {
	return f(tree, size)
}

// ErrorReporter presents fetch failures to the user.
type ErrorReporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to ErrorReporter.
type ReporterFunc func(err error)

// Report calls f.
func (f ReporterFunc) Report(err error) {
	f(err)
}

// Options wires a View to its collaborators.
type Options struct {
	AgentID  string
	Fetcher  fetcher.Fetcher // required
	Renderer Renderer        // nil discards the tree
	Reporter ErrorReporter   // nil logs the error
	Verbose  bool
}

// View is a single visit to a trace's flame graph.
// Navigating elsewhere means Destroy; navigating back means a new View.
type View struct {
	Title   string
	NavItem string

	params Params
	opts   Options

	mu       sync.Mutex
	state    State
	query    flamegraph.Query
	issued   bool
	parseErr error
	fetchErr error
	tree     flamegraph.Tree
	overlay  Overlay

	done     chan struct{}
	doneOnce sync.Once
}

// New creates an idle View for p.
func New(p Params, opts Options) (*View, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	return &View{
		Title:   DefaultTitle,
		NavItem: DefaultNavItem,
		params:  p,
		opts:    opts,
		done:    make(chan struct{}),
	}, nil
}

// Enter starts the view. A filter that does not parse moves the view straight
// to StateLoadedParseError without fetching; otherwise the fetch is issued
// and the view is loading until it resolves. Only the first call has effect.
func (v *View) Enter(ctx context.Context) {
	v.mu.Lock()
	if v.state != StateIdle {
		v.mu.Unlock()
		return
	}

	spec, err := filter.Parse(v.params.Filter)
	if err != nil {
		v.parseErr = err
		v.setState(StateLoadedParseError)
		v.mu.Unlock()
		v.markDone()
		return
	}

	v.query = flamegraph.BuildQuery(flamegraph.QueryParams{
		AgentID:                  v.opts.AgentID,
		TraceID:                  v.params.TraceID,
		Auxiliary:                v.params.Auxiliary,
		Filter:                   spec,
		TruncateBranchPercentage: v.params.TruncateBranchPercentage,
		CheckLiveTraces:          v.params.CheckLiveTraces,
	})
	v.issued = true
	v.setState(StateLoading)
	results := v.opts.Fetcher.Fetch(ctx, v.query)
	v.mu.Unlock()

	go v.await(results)
}

func (v *View) await(results <-chan fetcher.Result) {
	res, ok := <-results
	switch {
	case !ok:
		v.fail(errNoResult)
	case res.Err != nil:
		v.fail(res.Err)
	default:
		v.succeed(res.Forest)
	}
}

func (v *View) succeed(f flamegraph.Forest) {
	v.mu.Lock()
	if v.state != StateLoading {
		v.mu.Unlock()
		return
	}

	tree, ok := flamegraph.Normalize(f)
	if !ok {
		v.setState(StateLoadedNoData)
		v.mu.Unlock()
		v.markDone()
		return
	}

	v.tree = tree
	v.setState(StateLoadedWithData)
	if v.opts.Renderer != nil {
		v.overlay = v.opts.Renderer.Render(tree, Size{
			Width:  flamegraph.ChartWidth,
			Height: tree.PixelHeight(),
		})
	}
	v.mu.Unlock()
	v.markDone()
}

func (v *View) fail(err error) {
	v.mu.Lock()
	if v.state != StateLoading {
		v.mu.Unlock()
		return
	}
	v.fetchErr = err
	v.setState(StateLoadedFetchError)
	v.mu.Unlock()

	if v.opts.Reporter != nil {
		v.opts.Reporter.Report(err)
	} else {
		log.Printf("❌ trace %s: %v\n", v.params.TraceID, err)
	}
	v.markDone()
}

// Destroy tears the view down and removes any overlay its renderer created.
// A fetch still in flight is not aborted; its result is ignored.
// Safe to call multiple times.
func (v *View) Destroy() {
	v.mu.Lock()
	if v.state == StateDestroyed {
		v.mu.Unlock()
		return
	}
	v.setState(StateDestroyed)
	overlay := v.overlay
	v.overlay = nil
	v.mu.Unlock()

	if overlay != nil {
		overlay.Remove()
	}
	v.markDone()
}

// setState must be called with v.mu held.
func (v *View) setState(s State) {
	if v.opts.Verbose {
		log.Printf("🔥 view %s: %s -> %s\n", v.params.TraceID, v.state, s)
	}
	v.state = s
}

func (v *View) markDone() {
	v.doneOnce.Do(func() { close(v.done) })
}

// Done is closed once the view is loaded or destroyed.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Params returns the parameters the view was created with.
func (v *View) Params() Params {
	return v.params
}

// State returns the current lifecycle state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Loaded reports whether the view finished loading, whatever the outcome.
func (v *View) Loaded() bool {
	return v.State().Loaded()
}

// ParseError returns the filter parse error, if the view stopped on one.
func (v *View) ParseError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.parseErr
}

// FetchError returns the fetch error, if the view stopped on one.
func (v *View) FetchError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fetchErr
}

// Tree returns the rendered tree when the view loaded with data.
func (v *View) Tree() (flamegraph.Tree, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tree, v.tree.Root != nil
}

// Query returns the query issued on entry; ok is false if none was issued.
func (v *View) Query() (q flamegraph.Query, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query, v.issued
}
