package fetcher

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

var (
	fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trace_flamegraph_fetches_total",
		Help: "Flame graph fetches by source and outcome",
	}, []string{"source", "outcome"})
	fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trace_flamegraph_fetch_duration_seconds",
		Help:    "Flame graph fetch duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(fetchesTotal, fetchDuration)
}

func observeFetch(source string, err error, d time.Duration) {
	fetchDuration.WithLabelValues(source).Observe(d.Seconds())
	fetchesTotal.WithLabelValues(source, outcome(err)).Inc()
}

func outcome(err error) string {
	var (
		herr *HTTPError
		serr *flamegraph.ShapeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &serr):
		return "malformed"
	case errors.As(err, &herr):
		return "http_error"
	default:
		return "transport_error"
	}
}
