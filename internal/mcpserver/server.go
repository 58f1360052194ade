// Package mcpserver exposes trace flame graphs to agents over MCP.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/trace-flamegraph/internal/fetcher"
	"github.com/tobert/trace-flamegraph/internal/history"
	"github.com/tobert/trace-flamegraph/internal/view"
)

// defaultWidth is the ASCII rendering width when a call does not ask for one.
const defaultWidth = 100

// Server wraps the MCP server with a flame graph source.
type Server struct {
	mcpServer *mcp.Server
	opts      Options
}

// Options configures the MCP server.
type Options struct {
	Fetcher fetcher.Fetcher  // required
	AgentID string           // agent every query is scoped to
	History *history.History // optional; recent loads are listed from here
	Width   int              // default rendering width in columns
	Verbose bool             // Enable verbose logging
}

// NewServer creates a new MCP server exposing flame graph tools and resources.
func NewServer(opts Options) (*Server, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if opts.History == nil {
		opts.History = history.New(history.DefaultCapacity)
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}

	s := &Server{opts: opts}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "trace-flamegraph",
		Title:   "Trace flame graphs for agents",
		Version: "0.1.0",
	}, &mcp.ServerOptions{
		Instructions: `Loads the stack-sample flame graph of a single trace from the trace backend.

Workflow: get_trace_flame_graph(trace_id) -> narrow with filter ("com.example -java.lang") -> raise truncate_branch_percentage to hide noise.

Tools: get_trace_flame_graph, parse_filter (check filter syntax), get_recent_views.
Resources: flamegraph://history, flamegraph://traces/{trace_id}.`,
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server on stdio transport.
// This method blocks until the context is cancelled or EOF is received on stdin.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for use with alternative transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// load runs one view for p to completion and records it. The caller must
// Destroy the returned view.
func (s *Server) load(ctx context.Context, p view.Params) (*view.View, error) {
	v, err := view.New(p, view.Options{
		AgentID:  s.opts.AgentID,
		Fetcher:  s.opts.Fetcher,
		Reporter: view.ReporterFunc(func(error) {}), // returned to the caller instead
		Verbose:  s.opts.Verbose,
	})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	v.Enter(ctx)
	select {
	case <-v.Done():
	case <-ctx.Done():
		v.Destroy()
		return nil, ctx.Err()
	}

	s.opts.History.Record(v, started)
	return v, nil
}
