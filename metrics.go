package revalidate

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/always-cache/revalidate/transport"
)

const (
	metricsNamespace = "revalidate"

	phaseDirect = "direct"
	phaseCache  = "cache"
	phaseFetch  = "fetch"

	suppressedUnchanged = "unchanged"
	suppressedFailure   = "failure"
)

type metrics struct {
	deliveries *prometheus.CounterVec
	suppressed *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deliveries_total",
			Help:      "Results delivered to callers.",
		}, []string{"policy", "phase", "outcome"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "suppressed_total",
			Help:      "Revalidation results not delivered to callers.",
		}, []string{"reason"}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.deliveries, err = register(reg, m.deliveries); err != nil {
		return nil, err
	}
	if m.suppressed, err = register(reg, m.suppressed); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses a collector registered earlier by another client.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return c, err
}

func (m *metrics) delivered(policy Policy, phase string, r transport.Result) {
	outcome := "success"
	if !r.OK() {
		outcome = "failure"
	}
	m.deliveries.WithLabelValues(policy.String(), phase, outcome).Inc()
}

func (m *metrics) suppress(reason string) {
	m.suppressed.WithLabelValues(reason).Inc()
}
