// Package metrics defines the Prometheus collectors exported by the admin
// panel. All collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "adminpanel"

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - method: HTTP method
//   - route: chi route pattern (e.g. "/api/users/{userID}")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency by route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route"},
)

// PasswordHashDuration measures bcrypt work, including time spent waiting
// for a hashing slot.
// Label:
//   - op: "hash" or "compare"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_seconds",
		Help:      "Time spent hashing or comparing passwords.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"op"},
)

// AuditEventsPublished counts audit fan-out attempts.
// Label:
//   - result: "ok" or "error"
var AuditEventsPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_published_total",
		Help:      "Audit log entries published to the events backend.",
	},
	[]string{"result"},
)

// RoleCascadeUsers counts users moved to a new role name by a rename.
var RoleCascadeUsers = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_cascade_users_total",
		Help:      "Users whose role was rewritten by a role rename.",
	},
)
