package flamegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tobert/trace-flamegraph/internal/filter"
)

func TestBuildQuery_Defaults(t *testing.T) {
	q := BuildQuery(QueryParams{AgentID: "agent-1", TraceID: "abc", CheckLiveTraces: "true"})

	assert.Equal(t, 1.0, q.TruncateBranchPercentage)
	assert.False(t, q.Auxiliary)
	assert.Equal(t, "agent-1", q.AgentID)
	assert.Equal(t, "abc", q.TraceID)
	assert.Equal(t, "true", q.CheckLiveTraces)
	assert.True(t, q.Filter.IsEmpty())
}

func TestBuildQuery_TruncateBranchPercentage(t *testing.T) {
	testCases := []struct {
		in   float64
		want float64
	}{
		{0, 1.0},
		{0.1, 0.1},
		{5, 5},
		{100, 100},
		{150, 100},
		{-3, 0},
	}
	for _, tc := range testCases {
		q := BuildQuery(QueryParams{TruncateBranchPercentage: tc.in})
		assert.Equal(t, tc.want, q.TruncateBranchPercentage, "input %v", tc.in)
	}
}

func TestBuildQuery_OwnsFilter(t *testing.T) {
	spec := filter.Spec{Includes: []string{"foo"}, Excludes: []string{"bar"}}
	q := BuildQuery(QueryParams{Filter: spec, Auxiliary: true})

	spec.Includes[0] = "mutated"
	assert.Equal(t, []string{"foo"}, q.Filter.Includes)
	assert.Equal(t, []string{"bar"}, q.Filter.Excludes)
	assert.True(t, q.Auxiliary)
}

func TestQueryValues(t *testing.T) {
	q := BuildQuery(QueryParams{
		AgentID: "a1",
		TraceID: "t1",
		Filter:  filter.Spec{Includes: []string{"x", "y z"}, Excludes: []string{"w"}},
	})

	v := q.Values()
	assert.Equal(t, "a1", v.Get("agentId"))
	assert.Equal(t, "t1", v.Get("traceId"))
	assert.Equal(t, "false", v.Get("auxiliary"))
	assert.Equal(t, []string{"x", "y z"}, v["include"])
	assert.Equal(t, []string{"w"}, v["exclude"])
	assert.Equal(t, "1", v.Get("truncateBranchPercentage"))
	_, hasLive := v["checkLiveTraces"]
	assert.False(t, hasLive)

	q.CheckLiveTraces = "true"
	assert.Equal(t, "true", q.Values().Get("checkLiveTraces"))
}
