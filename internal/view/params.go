package view

import (
	"net/url"
	"strconv"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

// Params are the navigation parameters a view is entered with.
type Params struct {
	TraceID                  string  `json:"trace-id"`
	CheckLiveTraces          string  `json:"check-live-traces,omitempty"`
	Auxiliary                bool    `json:"auxiliary,omitempty"`
	Filter                   string  `json:"filter,omitempty"`
	TruncateBranchPercentage float64 `json:"truncate-branch-percentage,omitempty"`
}

// ParamsFromValues reads Params from location query parameters.
// Values that do not parse are treated as absent.
func ParamsFromValues(v url.Values) Params {
	p := Params{
		TraceID:         v.Get("trace-id"),
		CheckLiveTraces: v.Get("check-live-traces"),
		Filter:          v.Get("filter"),
	}
	if aux, err := strconv.ParseBool(v.Get("auxiliary")); err == nil {
		p.Auxiliary = aux
	}
	if pct, err := strconv.ParseFloat(v.Get("truncate-branch-percentage"), 64); err == nil {
		p.TruncateBranchPercentage = pct
	}
	return p
}

// Values is the inverse of ParamsFromValues.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("trace-id", p.TraceID)
	if p.CheckLiveTraces != "" {
		v.Set("check-live-traces", p.CheckLiveTraces)
	}
	if p.Auxiliary {
		v.Set("auxiliary", "true")
	}
	if p.Filter != "" {
		v.Set("filter", p.Filter)
	}
	if p.TruncateBranchPercentage != 0 {
		v.Set("truncate-branch-percentage", strconv.FormatFloat(p.TruncateBranchPercentage, 'f', -1, 64))
	}
	return v
}

// EffectiveTruncate is the truncate percentage a query built from p will use.
func (p Params) EffectiveTruncate() float64 {
	return flamegraph.BuildQuery(flamegraph.QueryParams{TruncateBranchPercentage: p.TruncateBranchPercentage}).TruncateBranchPercentage
}
