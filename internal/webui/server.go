// Package webui serves a browser front end for trace flame graphs: an
// embedded page, a JSON endpoint that loads one view, a WebSocket that keeps
// a live view per connection, and Prometheus metrics.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tobert/trace-flamegraph/internal/fetcher"
	"github.com/tobert/trace-flamegraph/internal/flamegraph"
	"github.com/tobert/trace-flamegraph/internal/history"
	"github.com/tobert/trace-flamegraph/internal/view"
)

//go:embed static/index.html
var staticFiles embed.FS

// Options wires the server to a flame graph source.
type Options struct {
	Fetcher fetcher.Fetcher // required
	AgentID string
	History *history.History // optional
	Verbose bool
}

// Server serves the embedded web UI, the JSON API and WebSocket sessions.
type Server struct {
	opts Options
}

// New creates a new web UI server.
func New(opts Options) (*Server, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if opts.History == nil {
		opts.History = history.New(history.DefaultCapacity)
	}
	return &Server{opts: opts}, nil
}

// RegisterRoutes attaches web UI routes to an existing ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ui/", s.handleUI)
	mux.HandleFunc("GET /ui", s.handleUIRedirect)
	mux.HandleFunc("GET /api/flame-graph", s.handleFlameGraph)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// ListenAndServe starts a standalone HTTP server for the web UI.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleUIRedirect redirects /ui to /ui/ for consistent routing.
func (s *Server) handleUIRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/ui/", http.StatusMovedPermanently)
}

// handleUI serves the embedded index.html.
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "UI not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// flameGraphResponse is the JSON shape for /api/flame-graph.
type flameGraphResponse struct {
	Title   string           `json:"title"`
	NavItem string           `json:"nav_item"`
	State   string           `json:"state"`
	Query   string           `json:"query,omitempty"` // backend query string
	Tree    *flamegraph.Tree `json:"tree,omitempty"`
	Size    *view.Size       `json:"size,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// newView creates a view for p wired to this server's fetcher.
func (s *Server) newView(p view.Params, r view.Renderer, rep view.ErrorReporter) (*view.View, error) {
	return view.New(p, view.Options{
		AgentID:  s.opts.AgentID,
		Fetcher:  s.opts.Fetcher,
		Renderer: r,
		Reporter: rep,
		Verbose:  s.opts.Verbose,
	})
}

// handleFlameGraph loads one view for the request's navigation parameters and
// reports how it ended.
func (s *Server) handleFlameGraph(w http.ResponseWriter, r *http.Request) {
	params := view.ParamsFromValues(r.URL.Query())
	if params.TraceID == "" {
		http.Error(w, "trace-id is required", http.StatusBadRequest)
		return
	}

	var size view.Size
	v, err := s.newView(params,
		view.RendererFunc(func(tree flamegraph.Tree, sz view.Size) view.Overlay {
			size = sz
			return nil
		}),
		view.ReporterFunc(func(error) {}), // surfaced in the response instead
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer v.Destroy()

	started := time.Now()
	v.Enter(r.Context())
	select {
	case <-v.Done():
	case <-r.Context().Done():
		return
	}
	s.opts.History.Record(v, started)

	resp := flameGraphResponse{
		Title:   v.Title,
		NavItem: v.NavItem,
		State:   v.State().String(),
	}
	if q, ok := v.Query(); ok {
		resp.Query = q.Values().Encode()
	}

	status := http.StatusOK
	switch v.State() {
	case view.StateLoadedWithData:
		tree, _ := v.Tree()
		resp.Tree = &tree
		resp.Size = &size
	case view.StateLoadedParseError:
		resp.Error = v.ParseError().Error()
		status = http.StatusBadRequest
	case view.StateLoadedFetchError:
		resp.Error = v.FetchError().Error()
		status = http.StatusBadGateway
	}

	writeJSONStatus(w, status, resp)
}

// handleHistory returns recently loaded views, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	entries := s.opts.History.Recent(limit)
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("webui: failed to write JSON: %v", err)
	}
}
