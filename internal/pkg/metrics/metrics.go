// Package metrics defines and registers all custom Prometheus metrics for the
// auth service. It is the single source of truth for metric names, labels
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto and exposed by the /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Workflow metrics ──────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts by outcome.
// Label:
//   - result: "success", "email_taken", "name_taken", "rejected" (policy), "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts by outcome.
// Label:
//   - result: "success" or "invalid_credentials"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RoleAssignmentsTotal counts role assignment attempts by outcome.
// Label:
//   - result: "success", "invalid", "already_assigned", "error"
var RoleAssignmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_assignments_total",
		Help:      "Total number of role assignment attempts, by result.",
	},
	[]string{"result"},
)

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokensIssuedTotal counts bearer tokens minted by register and login.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued.",
	},
)

// TokenValidationFailuresTotal counts bearer tokens rejected by the auth middleware.
var TokenValidationFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validation_failures_total",
		Help:      "Total number of bearer tokens rejected on protected routes.",
	},
)

// ── Store metrics ─────────────────────────────────────────────────────────────

// StoreOperationDuration measures identity repository calls.
// Labels:
//   - driver: "memory", "sqlite", "mysql", "postgres" or "mongo"
//   - operation: repository method name (e.g. "find_user_by_email")
var StoreOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Duration of identity store operations.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"driver", "operation"},
)

// ObserveStore starts timing a store call; invoke the returned func when it
// completes:
//
//	defer metrics.ObserveStore("sqlite", "create_user")()
func ObserveStore(driver, operation string) func() {
	start := time.Now()
	return func() {
		StoreOperationDuration.WithLabelValues(driver, operation).Observe(time.Since(start).Seconds())
	}
}
