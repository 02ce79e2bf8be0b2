package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the coordinator's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	events         *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	redirectErrors prometheus.Counter
	reloads        *prometheus.CounterVec
	intentions     prometheus.Gauge
}

// NewMetrics registers the coordinator collectors with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intender",
			Name:      "events_total",
			Help:      "Browser events handled, by event type.",
		}, []string{"event"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intender",
			Name:      "decisions_total",
			Help:      "Decisions taken, by action and rule.",
		}, []string{"action", "rule"}),
		redirectErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "intender",
			Name:      "redirect_errors_total",
			Help:      "Redirects to the reflection page the browser rejected.",
		}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intender",
			Name:      "reloads_total",
			Help:      "Settings reloads, by result.",
		}, []string{"result"}),
		intentions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "intender",
			Name:      "intentions",
			Help:      "Intentions in the active index.",
		}),
	}
}

func (m *Metrics) observeEvent(ev Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(EventName(ev)).Inc()
}

func (m *Metrics) observeDecision(d Decision) {
	if m == nil {
		return
	}
	rule := string(d.Rule)
	if rule == "" {
		rule = "none"
	}
	m.decisions.WithLabelValues(string(d.Action), rule).Inc()
}

func (m *Metrics) redirectFailed() {
	if m == nil {
		return
	}
	m.redirectErrors.Inc()
}

func (m *Metrics) reloaded(n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
	m.intentions.Set(float64(n))
}
