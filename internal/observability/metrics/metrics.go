package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reflection"

// Metric family names, as exposed on /metrics.
const (
	TurnsFamily         = "reflection_coach_turns_total"
	FallbacksFamily     = "reflection_coach_fallbacks_total"
	OracleCallsFamily   = "reflection_oracle_calls_total"
	OracleLatencyFamily = "reflection_oracle_latency_seconds"
)

// ReflectionMetrics exposes counters/histograms for reflection turns and
// oracle calls. It satisfies reflection.Observer and llm.CallObserver.
type ReflectionMetrics struct {
	turnsTotal     *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	oracleCalls    *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
}

func NewReflectionMetrics(reg prometheus.Registerer) *ReflectionMetrics {
	m := &ReflectionMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coach",
			Name:      "turns_total",
			Help:      "Completed reflection turns by reported stage",
		}, []string{"stage", "uncertainty_override", "recovered"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coach",
			Name:      "fallbacks_total",
			Help:      "Oracle-backed components that returned their fallback value",
		}, []string{"component"}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Oracle calls by purpose, provider and status",
		}, []string{"purpose", "provider", "status"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "latency_seconds",
			Help:      "Latency of oracle calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"purpose", "provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.fallbacksTotal, m.oracleCalls, m.oracleLatency)
	return m
}

func (m *ReflectionMetrics) ObserveTurn(stage string, uncertaintyOverride, recovered bool) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage, strconv.FormatBool(uncertaintyOverride), strconv.FormatBool(recovered)).Inc()
}

func (m *ReflectionMetrics) ObserveFallback(component string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(component).Inc()
}

func (m *ReflectionMetrics) ObserveOracleCall(purpose, provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(purpose, provider, status).Inc()
	m.oracleLatency.WithLabelValues(purpose, provider).Observe(seconds)
}
