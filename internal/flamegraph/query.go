package flamegraph

import (
	"net/url"
	"slices"
	"strconv"

	"github.com/tobert/trace-flamegraph/internal/filter"
)

// DefaultTruncateBranchPercentage is higher than the tree views use: flame
// graphs get unreadable and slow to tear down with very fine-grained leaves.
const DefaultTruncateBranchPercentage = 1.0

// QueryParams are the inputs to BuildQuery. Zero values mean "absent".
type QueryParams struct {
	AgentID                  string
	TraceID                  string
	Auxiliary                bool
	Filter                   filter.Spec
	TruncateBranchPercentage float64
	CheckLiveTraces          string
}

// Query is an immutable request for one trace's flame graph.
type Query struct {
	AgentID                  string
	TraceID                  string
	Auxiliary                bool
	Filter                   filter.Spec
	TruncateBranchPercentage float64
	CheckLiveTraces          string // opaque, forwarded to the backend
}

// BuildQuery applies defaults to p and returns the resulting Query.
func BuildQuery(p QueryParams) Query {
	pct := p.TruncateBranchPercentage
	switch {
	case pct == 0:
		pct = DefaultTruncateBranchPercentage
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}

	return Query{
		AgentID:   p.AgentID,
		TraceID:   p.TraceID,
		Auxiliary: p.Auxiliary,
		Filter: filter.Spec{
			Includes: slices.Clone(p.Filter.Includes),
			Excludes: slices.Clone(p.Filter.Excludes),
		},
		TruncateBranchPercentage: pct,
		CheckLiveTraces:          p.CheckLiveTraces,
	}
}

// Values encodes the query the way the flame-graph endpoint expects it:
// include and exclude are repeated keys, checkLiveTraces is omitted when unset.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("agentId", q.AgentID)
	v.Set("traceId", q.TraceID)
	v.Set("auxiliary", strconv.FormatBool(q.Auxiliary))
	for _, inc := range q.Filter.Includes {
		v.Add("include", inc)
	}
	for _, exc := range q.Filter.Excludes {
		v.Add("exclude", exc)
	}
	v.Set("truncateBranchPercentage", strconv.FormatFloat(q.TruncateBranchPercentage, 'f', -1, 64))
	if q.CheckLiveTraces != "" {
		v.Set("checkLiveTraces", q.CheckLiveTraces)
	}
	return v
}
