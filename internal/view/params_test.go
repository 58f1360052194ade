package view

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsFromValues(t *testing.T) {
	p := ParamsFromValues(url.Values{
		"trace-id":                   {"abc"},
		"check-live-traces":          {"true"},
		"auxiliary":                  {"true"},
		"filter":                     {"foo -bar"},
		"truncate-branch-percentage": {"2.5"},
	})

	assert.Equal(t, Params{
		TraceID:                  "abc",
		CheckLiveTraces:          "true",
		Auxiliary:                true,
		Filter:                   "foo -bar",
		TruncateBranchPercentage: 2.5,
	}, p)
	assert.Equal(t, 2.5, p.EffectiveTruncate())
}

func TestParamsFromValues_Defaults(t *testing.T) {
	p := ParamsFromValues(url.Values{
		"trace-id":                   {"abc"},
		"auxiliary":                  {"maybe"},
		"truncate-branch-percentage": {"lots"},
	})

	assert.False(t, p.Auxiliary)
	assert.Zero(t, p.TruncateBranchPercentage)
	assert.Equal(t, 1.0, p.EffectiveTruncate())
}

func TestParamsValuesRoundTrip(t *testing.T) {
	p := Params{TraceID: "t", Auxiliary: true, Filter: `"a b"`, TruncateBranchPercentage: 0.5}
	assert.Equal(t, p, ParamsFromValues(p.Values()))
}
