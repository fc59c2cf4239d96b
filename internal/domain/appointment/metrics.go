package appointment

import "github.com/prometheus/client_golang/prometheus"

// GateMetrics counts join decisions by outcome.
type GateMetrics struct {
	decisions *prometheus.CounterVec
}

func NewGateMetrics(namespace string) *GateMetrics {
	return &GateMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_decisions_total",
			Help:      "Consultation join decisions by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *GateMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.decisions)
}

func (m *GateMetrics) observe(d JoinDecision) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !d.Allowed {
		outcome = d.Reason
	}
	m.decisions.WithLabelValues(outcome).Inc()
}
