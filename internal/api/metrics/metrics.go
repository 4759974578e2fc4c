// Package metrics defines and registers the custom Prometheus metrics of the
// license API. Metrics are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "license"

// ── Binding ──────────────────────────────────────────────────────────────────

// BindAttemptsTotal counts HWID bind attempts.
// Label:
//   - result: "bound", "already_bound", "no_license", "hwid_in_use", "invalid", "error"
var BindAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bind_attempts_total",
		Help:      "Total number of HWID bind attempts, by result.",
	},
	[]string{"result"},
)

// ── Validation ───────────────────────────────────────────────────────────────

// ValidationsTotal counts HWID validation requests.
// Label:
//   - result: "valid", "invalid", "bad_request", "error"
var ValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validations_total",
		Help:      "Total number of HWID validations, by verdict.",
	},
	[]string{"result"},
)

// ValidationsRateLimitedTotal counts validation requests rejected by the rate limiter.
var ValidationsRateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validations_rate_limited_total",
		Help:      "Total number of validation requests rejected by the rate limiter.",
	},
)

// ── Administration ───────────────────────────────────────────────────────────

// LicensesIssuedTotal counts successfully issued licenses.
var LicensesIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issued_total",
		Help:      "Total number of licenses issued.",
	},
)

// LicensesRevokedTotal counts revocation requests.
// Label:
//   - result: "revoked", "not_found", "error"
var LicensesRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revoked_total",
		Help:      "Total number of license revocations, by result.",
	},
	[]string{"result"},
)

// ── Audit ────────────────────────────────────────────────────────────────────

// AuditEventsDroppedTotal counts audit events dropped because the buffer was full.
// Label:
//   - type: the event type (e.g. "license.bound")
var AuditEventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped on a full dispatcher buffer.",
	},
	[]string{"type"},
)
