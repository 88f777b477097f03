package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aurenix"

type Metrics struct {
	Registry *prometheus.Registry

	logins              *prometheus.CounterVec
	registrations       *prometheus.CounterVec
	roleChanges         *prometheus.CounterVec
	passwordCompletions prometheus.Counter
	requestDuration     *prometheus.HistogramVec
}

// New registers the application collectors plus the go/process collectors on a
// private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Local registration attempts by outcome.",
		}, []string{"outcome"}),
		roleChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_changes_total",
			Help:      "Role reassignments performed by the role gate.",
		}, []string{"role"}),
		passwordCompletions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_completions_total",
			Help:      "Federated accounts that set a local password.",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// The recorders below accept a nil receiver so callers without metrics need no guard.

func (m *Metrics) Login(method, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RoleChange(role string) {
	if m == nil {
		return
	}
	m.roleChanges.WithLabelValues(role).Inc()
}

func (m *Metrics) PasswordCompleted() {
	if m == nil {
		return
	}
	m.passwordCompletions.Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
