package metrics

import "github.com/prometheus/client_golang/prometheus"

// Conversation exposes counters/histograms for the dialogue engine.
type Conversation struct {
	turnsTotal    *prometheus.CounterVec
	fallbackTotal prometheus.Counter
	actionsTotal  *prometheus.CounterVec
	oracleLatency prometheus.Histogram
}

func NewConversation(reg prometheus.Registerer) *Conversation {
	m := &Conversation{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reception",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"intent"}),
		fallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reception",
			Subsystem: "conversation",
			Name:      "extraction_fallback_total",
			Help:      "Turns where the NLU oracle failed and the deterministic extractor was used",
		}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reception",
			Subsystem: "conversation",
			Name:      "actions_total",
			Help:      "Terminal actions dispatched against the calendar and ledger",
		}, []string{"action", "status"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reception",
			Subsystem: "conversation",
			Name:      "oracle_latency_seconds",
			Help:      "Latency of NLU oracle completions",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.fallbackTotal, m.actionsTotal, m.oracleLatency)
	return m
}

func (m *Conversation) ObserveTurn(intent string) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "unknown"
	}
	m.turnsTotal.WithLabelValues(intent).Inc()
}

func (m *Conversation) ObserveFallback() {
	if m == nil {
		return
	}
	m.fallbackTotal.Inc()
}

func (m *Conversation) ObserveAction(action, status string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action, status).Inc()
}

func (m *Conversation) ObserveOracleLatency(seconds float64) {
	if m == nil {
		return
	}
	m.oracleLatency.Observe(seconds)
}
