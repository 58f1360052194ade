package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/trace-flamegraph/internal/filter"
	"github.com/tobert/trace-flamegraph/internal/view"
	"github.com/tobert/trace-flamegraph/internal/viz"
)

// Tool 1: get_trace_flame_graph

type GetTraceFlameGraphInput struct {
	TraceID                  string  `json:"trace_id" jsonschema:"Trace to load"`
	Filter                   string  `json:"filter,omitempty" jsonschema:"Space or comma separated terms; prefix with - to exclude, quote to keep spaces (e.g. com.example -\"java.lang\")"`
	Auxiliary                bool    `json:"auxiliary,omitempty" jsonschema:"Show the auxiliary thread profile instead of the main one"`
	TruncateBranchPercentage float64 `json:"truncate_branch_percentage,omitempty" jsonschema:"Hide branches below this share of samples (default 1.0)"`
	CheckLiveTraces          string  `json:"check_live_traces,omitempty" jsonschema:"Forwarded to the backend unchanged"`
	Width                    int     `json:"width,omitempty" jsonschema:"Rendering width in columns"`
	HotFrames                int     `json:"hot_frames,omitempty" jsonschema:"Also list this many frames with the most self samples"`
}

type GetTraceFlameGraphOutput struct {
	State       string           `json:"state" jsonschema:"loaded, no-data, parse-error or fetch-error"`
	Query       string           `json:"query,omitempty" jsonschema:"Query string sent to the backend"`
	Samples     int64            `json:"samples,omitempty" jsonschema:"Samples under the root"`
	Height      int              `json:"height,omitempty" jsonschema:"Number of levels"`
	PixelHeight int              `json:"pixel_height,omitempty" jsonschema:"Height of the graphical chart in pixels"`
	FlameGraph  string           `json:"flame_graph,omitempty" jsonschema:"Text rendering, root on top"`
	HotFrames   []viz.FrameStats `json:"hot_frames,omitempty" jsonschema:"Frames with the most self samples"`
}

func (s *Server) handleGetTraceFlameGraph(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetTraceFlameGraphInput,
) (*mcp.CallToolResult, GetTraceFlameGraphOutput, error) {
	if input.TraceID == "" {
		return nil, GetTraceFlameGraphOutput{}, fmt.Errorf("trace_id is required")
	}
	if input.TruncateBranchPercentage < 0 || input.TruncateBranchPercentage > 100 {
		return nil, GetTraceFlameGraphOutput{}, fmt.Errorf("truncate_branch_percentage must be between 0 and 100")
	}

	v, err := s.load(ctx, view.Params{
		TraceID:                  input.TraceID,
		CheckLiveTraces:          input.CheckLiveTraces,
		Auxiliary:                input.Auxiliary,
		Filter:                   input.Filter,
		TruncateBranchPercentage: input.TruncateBranchPercentage,
	})
	if err != nil {
		return nil, GetTraceFlameGraphOutput{}, err
	}
	defer v.Destroy()

	if err := v.ParseError(); err != nil {
		return nil, GetTraceFlameGraphOutput{}, fmt.Errorf("invalid filter: %w", err)
	}
	if err := v.FetchError(); err != nil {
		return nil, GetTraceFlameGraphOutput{}, fmt.Errorf("failed to load flame graph for trace %s: %w", input.TraceID, err)
	}

	out := GetTraceFlameGraphOutput{State: v.State().String()}
	if q, ok := v.Query(); ok {
		out.Query = q.Values().Encode()
	}

	tree, ok := v.Tree()
	if !ok {
		msg := fmt.Sprintf("No flame graph data for trace %s.", input.TraceID)
		return textToolResult(msg), out, nil
	}

	width := input.Width
	if width <= 0 {
		width = s.opts.Width
	}
	out.Samples = tree.Root.Value
	out.Height = tree.Height
	out.PixelHeight = tree.PixelHeight()
	out.FlameGraph = viz.FlameGraph(tree, width)

	text := out.FlameGraph
	if input.HotFrames > 0 {
		stats := viz.HotFrames(tree)
		out.HotFrames = stats[:min(input.HotFrames, len(stats))]
		text += "\n" + viz.HotFramesSummary(tree, input.HotFrames)
	}

	return textToolResult(text), out, nil
}

// Tool 2: parse_filter

type ParseFilterInput struct {
	Filter string `json:"filter" jsonschema:"Filter text to check"`
}

type ParseFilterOutput struct {
	Valid     bool     `json:"valid" jsonschema:"Whether the filter parses"`
	Includes  []string `json:"includes,omitempty" jsonschema:"Terms a stack must contain"`
	Excludes  []string `json:"excludes,omitempty" jsonschema:"Terms a stack must not contain"`
	Canonical string   `json:"canonical,omitempty" jsonschema:"Equivalent filter text"`
	Error     string   `json:"error,omitempty" jsonschema:"Why the filter does not parse"`
	Position  int      `json:"position,omitempty" jsonschema:"Byte offset of the error"`
}

func (s *Server) handleParseFilter(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ParseFilterInput,
) (*mcp.CallToolResult, ParseFilterOutput, error) {
	spec, err := filter.Parse(input.Filter)
	if err != nil {
		out := ParseFilterOutput{Error: err.Error()}
		var perr *filter.ParseError
		if errors.As(err, &perr) {
			out.Position = perr.Pos
		}
		return &mcp.CallToolResult{}, out, nil
	}

	return &mcp.CallToolResult{}, ParseFilterOutput{
		Valid:     true,
		Includes:  spec.Includes,
		Excludes:  spec.Excludes,
		Canonical: spec.String(),
	}, nil
}

// Tool 3: get_recent_views

type GetRecentViewsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum entries to return (default 20)"`
}

type GetRecentViewsOutput struct {
	Views []RecentView `json:"views" jsonschema:"Recently loaded flame graphs, newest first"`
}

type RecentView struct {
	At         string  `json:"at" jsonschema:"When the load finished (RFC 3339)"`
	TraceID    string  `json:"trace_id" jsonschema:"Trace ID"`
	Filter     string  `json:"filter,omitempty" jsonschema:"Filter text"`
	Auxiliary  bool    `json:"auxiliary,omitempty" jsonschema:"Auxiliary thread profile"`
	State      string  `json:"state" jsonschema:"loaded, no-data, parse-error or fetch-error"`
	Samples    int64   `json:"samples,omitempty" jsonschema:"Samples under the root"`
	Error      string  `json:"error,omitempty" jsonschema:"Why the load failed"`
	DurationMs float64 `json:"duration_ms" jsonschema:"Load time in milliseconds"`
}

func (s *Server) handleGetRecentViews(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetRecentViewsInput,
) (*mcp.CallToolResult, GetRecentViewsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	views := []RecentView{}
	for _, e := range s.opts.History.Recent(limit) {
		views = append(views, RecentView{
			At:         e.At.Format(time.RFC3339),
			TraceID:    e.Params.TraceID,
			Filter:     e.Params.Filter,
			Auxiliary:  e.Params.Auxiliary,
			State:      e.State,
			Samples:    e.Samples,
			Error:      e.Error,
			DurationMs: e.Duration,
		})
	}
	return &mcp.CallToolResult{}, GetRecentViewsOutput{Views: views}, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_trace_flame_graph",
		Description: "Load the stack-sample flame graph of one trace and render it as text, root on top, with frame widths proportional to samples. Narrow it with filter (include terms, -exclude terms) or raise truncate_branch_percentage to drop small branches. Set hot_frames to also get the frames with the most self samples.",
	}, s.handleGetTraceFlameGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "parse_filter",
		Description: "Check a flame graph filter without loading anything. Returns the include and exclude terms, or the position of the syntax error.",
	}, s.handleParseFilter)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recent_views",
		Description: "List recently loaded flame graphs with their outcome, sample count and load time, newest first.",
	}, s.handleGetRecentViews)
}

func textToolResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
