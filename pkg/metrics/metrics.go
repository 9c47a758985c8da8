package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeCapability  = "capability_unavailable"
	OutcomeStateStore  = "state_store"
	OutcomeThreadBusy  = "thread_busy"
	OutcomeInternalErr = "error"
)

// Metrics groups the Prometheus instruments of the service.
type Metrics struct {
	Cycles        *prometheus.CounterVec
	CycleLatency  prometheus.Histogram
	LeadsCaptured *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the instruments on reg. Pass nil to use a fresh registry,
// which keeps tests from colliding on the default one.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Conversation cycles by intent and outcome.",
		}, []string{"channel", "intent", "outcome"}),
		CycleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one conversation cycle.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		LeadsCaptured: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_captured_total",
			Help:      "Leads that reached completion, by channel.",
		}, []string{"channel"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_deliveries_total",
			Help:      "Outbound reply deliveries by result.",
		}, []string{"result"}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveCycle(channel, intent, outcome string, d time.Duration) {
	if intent == "" {
		intent = "none"
	}
	m.Cycles.WithLabelValues(channel, intent, outcome).Inc()
	m.CycleLatency.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
