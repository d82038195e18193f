// Package metrics exposes Prometheus metrics for the login and session
// lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginAttempts     *prometheus.CounterVec
	SessionTakeovers  prometheus.Counter
	MonitorCycles     *prometheus.CounterVec
	ForcedLogouts     prometheus.Counter
	ResolveDurationMs prometheus.Histogram
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests use a
// private registry so repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigede_login_attempts_total",
			Help: "Login attempts by outcome (ok or failure code).",
		}, []string{"outcome"}),
		SessionTakeovers: factory.NewCounter(prometheus.CounterOpts{
			Name: "sigede_session_takeovers_total",
			Help: "Logins that revoked a prior live session.",
		}),
		MonitorCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigede_monitor_cycles_total",
			Help: "Session health monitor cycles by result.",
		}, []string{"result"}),
		ForcedLogouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "sigede_forced_logouts_total",
			Help: "Forced logouts after sustained validation failures.",
		}),
		ResolveDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigede_identity_resolve_duration_ms",
			Help:    "Identity resolution latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveLogin records one login attempt outcome.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveResolve records one identity resolution duration.
func (m *Metrics) ObserveResolve(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ResolveDurationMs.Observe(float64(elapsed) / float64(time.Millisecond))
}
