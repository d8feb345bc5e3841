package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AuthAttempts counts sign-in and register outcomes.
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "auth", Name: "attempts_total", Help: "Number of sign-in/register attempts by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "auth", Name: "guard_decisions_total", Help: "Protected-route decisions by path taken (access, refresh, rejected)."},
		[]string{"path"},
	)
	SessionsInvalidated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "auth", Name: "sessions_invalidated_total", Help: "Number of sign-out operations by scope (single, all)."},
		[]string{"scope"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(GuardDecisions)
	reg.MustRegister(SessionsInvalidated)
}
