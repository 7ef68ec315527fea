// Package metrics provides Prometheus instrumentation for the matching and
// claim-verification engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MatchesDiscovered counts candidates newly flagged for authentication
	// by a discovery run.
	MatchesDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "najdeno_matches_discovered_total",
		Help: "Candidates moved to Authentication In Progress by match discovery",
	})

	// MatchRollbacks counts candidates rolled back to Registered because
	// their counterpart report was withdrawn.
	MatchRollbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "najdeno_match_rollbacks_total",
		Help: "Candidates rolled back to Registered after counterpart deletion",
	})

	// ClaimVerifications counts answer-verification attempts, labeled by
	// outcome: "verified", "rejected", or "conflict".
	ClaimVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "najdeno_claim_verifications_total",
		Help: "Security-answer verification attempts by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		MatchesDiscovered,
		MatchRollbacks,
		ClaimVerifications,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
