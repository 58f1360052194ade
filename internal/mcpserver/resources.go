package mcpserver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/trace-flamegraph/internal/view"
	"github.com/tobert/trace-flamegraph/internal/viz"
)

const tracePrefix = "flamegraph://traces/"

// registerResources registers all MCP resources and resource templates.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "flamegraph://history",
		Name:        "history",
		Description: "Recently loaded flame graphs: trace, outcome, samples and load time.",
		MIMEType:    "text/plain",
	}, s.handleHistoryResource)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: tracePrefix + "{trace_id}",
		Name:        "trace-flame-graph",
		Description: "Text flame graph for one trace with the default filter and truncation.",
		MIMEType:    "text/plain",
	}, s.handleTraceResource)
}

func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	entries := s.opts.History.Recent(0)

	var b strings.Builder
	fmt.Fprintf(&b, "Recent Flame Graphs (%d)\n", len(entries))
	b.WriteString("═══════════════════════\n")
	if len(entries) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s  %-24s %-12s", e.At.Format("15:04:05"), e.Params.TraceID, e.State)
		switch {
		case e.Error != "":
			fmt.Fprintf(&b, " %s", e.Error)
		case e.Samples > 0:
			fmt.Fprintf(&b, " %s samples, %d levels", viz.FormatCount(int(e.Samples)), e.Height)
		}
		fmt.Fprintf(&b, " (%.1fms)\n", e.Duration)
	}

	return textResult(req.Params.URI, b.String()), nil
}

func (s *Server) handleTraceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	traceID, err := extractURIParam(req.Params.URI, tracePrefix)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	v, err := s.load(ctx, view.Params{TraceID: traceID})
	if err != nil {
		return nil, err
	}
	defer v.Destroy()

	if err := v.FetchError(); err != nil {
		return nil, fmt.Errorf("failed to load flame graph for trace %s: %w", traceID, err)
	}

	tree, ok := v.Tree()
	if !ok {
		return textResult(req.Params.URI, fmt.Sprintf("No flame graph data for trace %s.\n", traceID)), nil
	}
	return textResult(req.Params.URI, viz.FlameGraph(tree, s.opts.Width)), nil
}

// extractURIParam extracts the parameter value after a URI prefix.
func extractURIParam(uri, prefix string) (string, error) {
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("invalid URI: %s", uri)
	}
	param := strings.TrimPrefix(uri, prefix)
	if param == "" {
		return "", fmt.Errorf("empty parameter in URI: %s", uri)
	}
	decoded, err := url.PathUnescape(param)
	if err != nil {
		return "", fmt.Errorf("invalid encoding in URI: %w", err)
	}
	return decoded, nil
}

// textResult wraps a string in a ReadResourceResult.
func textResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}
}
