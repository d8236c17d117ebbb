package metrics

import "github.com/prometheus/client_golang/prometheus"

// Match call Prometheus metrics.
var (
	MatchCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keymatch",
			Name:      "match_calls_total",
			Help:      "Total number of match calls",
		},
		[]string{"op", "relation", "status"},
	)

	MatchCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "keymatch",
			Name:      "match_call_duration_seconds",
			Help:      "Match call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op", "relation"},
	)

	MatchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keymatch",
			Name:      "match_items_total",
			Help:      "Candidate items by match outcome",
		},
		[]string{"relation", "outcome"}, // "existing" / "not_existing"
	)

	StagingBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keymatch",
			Name:      "staging_batches_total",
			Help:      "Total number of key batches written to staging areas",
		},
		[]string{"backend"},
	)

	StagedKeysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keymatch",
			Name:      "staged_keys_total",
			Help:      "Total number of key tuples written to staging areas",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(MatchCallsTotal)
	prometheus.MustRegister(MatchCallDuration)
	prometheus.MustRegister(MatchItemsTotal)
	prometheus.MustRegister(StagingBatchesTotal)
	prometheus.MustRegister(StagedKeysTotal)
}

// Status returns the status label for a finished call.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
