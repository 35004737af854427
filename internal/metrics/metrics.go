package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoop    = "noop"
	OutcomeCSRF    = "csrf_mismatch"
)

// Logout kinds.
const (
	LogoutLocal    = "local"
	LogoutProvider = "provider"
	LogoutForced   = "forced"
)

// Metrics provides observability for the session lifecycle.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	LoginsStarted          prometheus.Counter
	Callbacks              *prometheus.CounterVec
	Refreshes              *prometheus.CounterVec
	Logouts                *prometheus.CounterVec
	IdentityFetchFailures  prometheus.Counter
	StorageUnavailableSeen prometheus.Counter
}

// New registers the session metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "crud_session_logins_started_total",
			Help: "Total number of login attempts sent to the identity provider",
		}),
		Callbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crud_session_callbacks_total",
			Help: "Authorization callbacks handled, by outcome",
		}, []string{"outcome"}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crud_session_refreshes_total",
			Help: "Token refreshes, by outcome",
		}, []string{"outcome"}),
		Logouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crud_session_logouts_total",
			Help: "Logouts, by kind",
		}, []string{"kind"}),
		IdentityFetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "crud_session_identity_fetch_failures_total",
			Help: "Background identity fetches that failed",
		}),
		StorageUnavailableSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "crud_session_storage_unavailable_total",
			Help: "Logins refused because durable token storage was unavailable",
		}),
	}
}

func (m *Metrics) IncrementLoginStarted() {
	if m == nil {
		return
	}
	m.LoginsStarted.Inc()
}

// IncrementCallback records a callback outcome.
func (m *Metrics) IncrementCallback(outcome string) {
	if m == nil {
		return
	}
	m.Callbacks.WithLabelValues(outcome).Inc()
}

// IncrementRefresh records a refresh outcome.
func (m *Metrics) IncrementRefresh(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

// IncrementLogout records a logout of the given kind.
func (m *Metrics) IncrementLogout(kind string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementIdentityFetchFailure() {
	if m == nil {
		return
	}
	m.IdentityFetchFailures.Inc()
}

func (m *Metrics) IncrementStorageUnavailable() {
	if m == nil {
		return
	}
	m.StorageUnavailableSeen.Inc()
}
