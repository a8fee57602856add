package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by lookups and resolutions.
const (
	OutcomeOK         = "ok"
	OutcomeFailure    = "lookup_failure"
	OutcomeMalformed  = "malformed_response"
	OutcomeDegenerate = "degenerate_quote"
	OutcomeUnknown    = "unknown_currency"
	OutcomeCanceled   = "canceled"
)

var (
	// LookupsTotal counts price oracle calls by outcome.
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_lookups_total",
			Help: "Price oracle lookups by outcome",
		},
		[]string{"outcome"},
	)

	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rate_lookup_duration_seconds",
			Help:    "Price oracle lookup latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ResolutionsTotal counts resolver calls by strategy and outcome.
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_resolutions_total",
			Help: "Exchange rate resolutions by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Telegram updates handled by kind",
		},
		[]string{"kind"},
	)
)

// ObserveSessions exports the live session count, sampled at scrape time.
// Call it once per process.
func ObserveSessions(count func() int) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "bot_sessions",
			Help: "Stored user sessions",
		},
		func() float64 { return float64(count()) },
	)
}
