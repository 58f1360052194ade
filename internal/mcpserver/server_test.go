package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/trace-flamegraph/internal/fetcher"
	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

// stubFetcher answers every query from results, keyed by trace ID.
type stubFetcher struct {
	results map[string]fetcher.Result
	queries []flamegraph.Query
}

func (f *stubFetcher) Fetch(ctx context.Context, q flamegraph.Query) <-chan fetcher.Result {
	f.queries = append(f.queries, q)
	ch := make(chan fetcher.Result, 1)
	ch <- f.results[q.TraceID]
	close(ch)
	return ch
}

func newTestServer(t *testing.T) (*Server, *stubFetcher) {
	t.Helper()
	f := &stubFetcher{results: map[string]fetcher.Result{
		"t1": {Forest: flamegraph.Forest{
			RootNodes: []*flamegraph.Node{{Name: "main", Value: 100, Children: []*flamegraph.Node{
				{Name: "work", Value: 80},
			}}},
			Height:           2,
			TotalSampleCount: 100,
		}},
		"empty": {},
		"down":  {Err: &fetcher.HTTPError{StatusCode: 502}},
	}}
	srv, err := NewServer(Options{Fetcher: f, AgentID: "a1", Width: 60})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv, f
}

// TestServerCreation verifies basic server initialization.
func TestServerCreation(t *testing.T) {
	server, _ := newTestServer(t)

	if server.mcpServer == nil {
		t.Fatal("mcp server is nil")
	}
	if server.opts.History == nil {
		t.Fatal("expected a default history")
	}
}

// TestServerCreationNilFetcher verifies that NewServer rejects a nil fetcher.
func TestServerCreationNilFetcher(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatal("expected error for nil fetcher, got nil")
	}
}

func TestGetTraceFlameGraph(t *testing.T) {
	srv, f := newTestServer(t)

	result, out, err := srv.handleGetTraceFlameGraph(context.Background(), &mcp.CallToolRequest{},
		GetTraceFlameGraphInput{TraceID: "t1", Filter: "work", HotFrames: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.State != "loaded" {
		t.Errorf("expected state loaded, got %q", out.State)
	}
	if out.Samples != 100 || out.Height != 2 || out.PixelHeight != 36 {
		t.Errorf("unexpected shape: %+v", out)
	}
	if !strings.Contains(out.FlameGraph, "|main") || !strings.Contains(out.FlameGraph, "|work") {
		t.Errorf("expected frames in rendering, got:\n%s", out.FlameGraph)
	}
	if len(out.HotFrames) != 1 || out.HotFrames[0].Name != "work" {
		t.Errorf("expected work as hottest frame, got %+v", out.HotFrames)
	}
	if !strings.Contains(out.Query, "include=work") || !strings.Contains(out.Query, "agentId=a1") {
		t.Errorf("unexpected query %q", out.Query)
	}

	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content, got %d", len(result.Content))
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "Hot frames") {
		t.Errorf("expected hot frames in text, got:\n%s", text)
	}

	if len(f.queries) != 1 || f.queries[0].TruncateBranchPercentage != 1.0 {
		t.Errorf("expected one query with default truncate, got %+v", f.queries)
	}
}

func TestGetTraceFlameGraph_Outcomes(t *testing.T) {
	srv, f := newTestServer(t)
	ctx := context.Background()

	_, out, err := srv.handleGetTraceFlameGraph(ctx, &mcp.CallToolRequest{}, GetTraceFlameGraphInput{TraceID: "empty"})
	if err != nil {
		t.Fatalf("no data should not be an error: %v", err)
	}
	if out.State != "no-data" || out.FlameGraph != "" {
		t.Errorf("unexpected no-data output: %+v", out)
	}

	_, _, err = srv.handleGetTraceFlameGraph(ctx, &mcp.CallToolRequest{}, GetTraceFlameGraphInput{TraceID: "down"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("expected backend error, got %v", err)
	}

	before := len(f.queries)
	_, _, err = srv.handleGetTraceFlameGraph(ctx, &mcp.CallToolRequest{}, GetTraceFlameGraphInput{TraceID: "t1", Filter: `'x`})
	if err == nil || !strings.Contains(err.Error(), "invalid filter") {
		t.Errorf("expected filter error, got %v", err)
	}
	if len(f.queries) != before {
		t.Error("a bad filter must not reach the backend")
	}

	for _, in := range []GetTraceFlameGraphInput{{}, {TraceID: "t1", TruncateBranchPercentage: 101}} {
		if _, _, err := srv.handleGetTraceFlameGraph(ctx, &mcp.CallToolRequest{}, in); err == nil {
			t.Errorf("expected validation error for %+v", in)
		}
	}
}

func TestParseFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, out, err := srv.handleParseFilter(ctx, &mcp.CallToolRequest{}, ParseFilterInput{Filter: `foo,-"a b"`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Valid || len(out.Includes) != 1 || out.Excludes[0] != "a b" {
		t.Errorf("unexpected parse: %+v", out)
	}
	if out.Canonical != `foo -"a b"` {
		t.Errorf("unexpected canonical form %q", out.Canonical)
	}

	_, out, err = srv.handleParseFilter(ctx, &mcp.CallToolRequest{}, ParseFilterInput{Filter: "foo -"})
	if err != nil {
		t.Fatalf("parse failures are reported in the output: %v", err)
	}
	if out.Valid || out.Position != 4 || !strings.Contains(out.Error, "invalid use of - character") {
		t.Errorf("unexpected failure output: %+v", out)
	}
}

func TestGetRecentViews(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, out, _ := srv.handleGetRecentViews(ctx, &mcp.CallToolRequest{}, GetRecentViewsInput{})
	if out.Views == nil || len(out.Views) != 0 {
		t.Fatalf("expected empty, non-nil list, got %#v", out.Views)
	}

	srv.handleGetTraceFlameGraph(ctx, &mcp.CallToolRequest{}, GetTraceFlameGraphInput{TraceID: "t1"})
	srv.handleGetTraceFlameGraph(ctx, &mcp.CallToolRequest{}, GetTraceFlameGraphInput{TraceID: "down"})

	_, out, _ = srv.handleGetRecentViews(ctx, &mcp.CallToolRequest{}, GetRecentViewsInput{Limit: 5})
	if len(out.Views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(out.Views))
	}
	if out.Views[0].TraceID != "down" || out.Views[0].State != "fetch-error" {
		t.Errorf("expected newest first, got %+v", out.Views[0])
	}
	if out.Views[1].Samples != 100 {
		t.Errorf("expected samples recorded, got %+v", out.Views[1])
	}
}

func readReq(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestTraceResource(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleTraceResource(context.Background(), readReq("flamegraph://traces/t1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, "|main") {
		t.Errorf("expected rendering, got:\n%s", result.Contents[0].Text)
	}

	result, err = srv.handleTraceResource(context.Background(), readReq("flamegraph://traces/empty"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, "No flame graph data") {
		t.Errorf("unexpected text %q", result.Contents[0].Text)
	}

	if _, err := srv.handleTraceResource(context.Background(), readReq("flamegraph://traces/")); err == nil {
		t.Error("expected not-found error for empty trace ID")
	}
}

func TestHistoryResource(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleHistoryResource(ctx, readReq("flamegraph://history"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, "(none)") {
		t.Errorf("expected empty marker, got:\n%s", result.Contents[0].Text)
	}

	srv.handleGetTraceFlameGraph(ctx, &mcp.CallToolRequest{}, GetTraceFlameGraphInput{TraceID: "t1"})
	result, _ = srv.handleHistoryResource(ctx, readReq("flamegraph://history"))
	text := result.Contents[0].Text
	if !strings.Contains(text, "Recent Flame Graphs (1)") || !strings.Contains(text, "100 samples, 2 levels") {
		t.Errorf("unexpected history:\n%s", text)
	}
}
