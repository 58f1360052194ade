// Package tui is an interactive terminal browser for one trace's flame graph.
// Every change to the navigation parameters replaces the current view with a
// new one, exactly as navigating between pages would.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tobert/trace-flamegraph/internal/fetcher"
	"github.com/tobert/trace-flamegraph/internal/view"
	"github.com/tobert/trace-flamegraph/internal/viz"
)

// truncateStep is how far +/- move the truncate percentage.
const truncateStep = 0.5

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
)

// Options configures the browser.
type Options struct {
	Context context.Context // bounds every fetch; defaults to Background
	Fetcher fetcher.Fetcher
	AgentID string
	Width   int // columns until the terminal reports its size
	Verbose bool
}

// loadedMsg says a view finished, successfully or not, or was destroyed.
type loadedMsg struct {
	v *view.View
}

// Model is the bubbletea model for the browser.
type Model struct {
	opts    Options
	params  view.Params
	current *view.View
	canvas  *canvas
	level   int
	width   int

	filterInput   textinput.Model
	filterEditing bool
}

// New creates the browser and enters the first view for params.
func New(opts Options, params view.Params) (Model, error) {
	if opts.Fetcher == nil {
		return Model{}, fmt.Errorf("fetcher cannot be nil")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	fi := textinput.New()
	fi.Placeholder = `e.g. com.example -"java.lang"`
	fi.Prompt = "filter> "
	fi.CharLimit = 200
	fi.Width = 60

	m := Model{
		opts:        opts,
		params:      params,
		width:       opts.Width,
		filterInput: fi,
	}
	if _, err := m.navigate(params); err != nil {
		return Model{}, err
	}
	return m, nil
}

// Init waits for the first view.
func (m Model) Init() tea.Cmd {
	return waitFor(m.current)
}

// waitFor delivers a loadedMsg once v is done.
func waitFor(v *view.View) tea.Cmd {
	return func() tea.Msg {
		<-v.Done()
		return loadedMsg{v: v}
	}
}

// navigate destroys the current view and enters a new one for p.
func (m *Model) navigate(p view.Params) (tea.Cmd, error) {
	if m.current != nil {
		m.current.Destroy()
	}

	c := &canvas{}
	v, err := view.New(p, view.Options{
		AgentID:  m.opts.AgentID,
		Fetcher:  m.opts.Fetcher,
		Renderer: c,
		Reporter: c,
		Verbose:  m.opts.Verbose,
	})
	if err != nil {
		return nil, err
	}

	m.params = p
	m.current = v
	m.canvas = c
	m.level = 0
	v.Enter(m.opts.Context)
	return waitFor(v), nil
}

// renavigate is navigate for use inside Update, where errors cannot occur
// because the fetcher was validated in New.
func (m Model) renavigate(p view.Params) (tea.Model, tea.Cmd) {
	cmd, _ := m.navigate(p)
	return m, cmd
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		// View reads the canvas directly, so a load only needs a redraw.
		// Completions from views that were already replaced carry nothing.
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.filterEditing {
			return m.updateFilterInput(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q", "Q":
			m.current.Destroy()
			return m, tea.Quit

		case "f", "/":
			m.filterEditing = true
			m.filterInput.SetValue(m.params.Filter)
			m.filterInput.CursorEnd()
			m.filterInput.Focus()
			return m, textinput.Blink

		case "a":
			p := m.params
			p.Auxiliary = !p.Auxiliary
			return m.renavigate(p)

		case "+", "=":
			p := m.params
			p.TruncateBranchPercentage = math.Min(p.EffectiveTruncate()+truncateStep, 100)
			return m.renavigate(p)

		case "-", "_":
			p := m.params
			p.TruncateBranchPercentage = math.Max(p.EffectiveTruncate()-truncateStep, truncateStep)
			return m.renavigate(p)

		case "r":
			return m.renavigate(m.params)

		case "down", "j":
			if snap := m.canvas.snapshot(); snap.drawn {
				m.level = max(min(m.level+1, viz.Levels(snap.tree, m.width)-1), 0)
			}
			return m, nil

		case "up", "k":
			m.level = max(m.level-1, 0)
			return m, nil
		}
	}

	return m, nil
}

func (m Model) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterEditing = false
		m.filterInput.Blur()
		p := m.params
		p.Filter = strings.TrimSpace(m.filterInput.Value())
		return m.renavigate(p)

	case "esc":
		m.filterEditing = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// View renders the browser.
func (m Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", headerStyle.Render(m.current.Title), dimStyle.Render("trace "+m.params.TraceID))
	fmt.Fprintf(&b, "%s\n\n", dimStyle.Render(m.paramSummary()))

	switch state := m.current.State(); state {
	case view.StateIdle, view.StateLoading:
		b.WriteString("Loading flame graph...\n")

	case view.StateLoadedNoData:
		b.WriteString("No flame graph data for this trace.\n")

	case view.StateLoadedParseError:
		fmt.Fprintf(&b, "%s\n", errorStyle.Render(m.current.ParseError().Error()))

	case view.StateLoadedFetchError:
		fmt.Fprintf(&b, "%s\n", errorStyle.Render("failed to load: "+m.current.FetchError().Error()))

	case view.StateLoadedWithData:
		snap := m.canvas.snapshot()
		b.WriteString(viz.FlameGraph(snap.tree, m.width))
		if snap.tooltip {
			fmt.Fprintf(&b, "\n%s\n", viz.Tooltip(snap.tree, m.level))
		}
	}

	b.WriteString("\n")
	if m.filterEditing {
		fmt.Fprintf(&b, "%s\n", m.filterInput.View())
		b.WriteString(dimStyle.Render("enter apply · esc cancel"))
	} else {
		b.WriteString(dimStyle.Render("f filter · a auxiliary · +/- truncate · j/k level · r reload · q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) paramSummary() string {
	parts := []string{fmt.Sprintf("truncate %.1f%%", m.params.EffectiveTruncate())}
	if m.params.Auxiliary {
		parts = append(parts, "auxiliary threads")
	}
	if m.params.Filter != "" {
		parts = append(parts, "filter "+m.params.Filter)
	}
	return strings.Join(parts, " · ")
}

// Current returns the view being shown.
func (m Model) Current() *view.View {
	return m.current
}

// Params returns the parameters of the view being shown.
func (m Model) Params() view.Params {
	return m.params
}

// Run starts the browser full-screen and blocks until the user quits.
func Run(opts Options, params view.Params) error {
	m, err := New(opts, params)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running UI: %w", err)
	}
	if fm, ok := final.(Model); ok {
		fm.current.Destroy()
	}
	return nil
}
