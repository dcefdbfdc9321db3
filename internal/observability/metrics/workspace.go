package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

// WorkspaceMetrics records feature outcomes reported by the workspace
// controllers and the backend breaker state.
type WorkspaceMetrics struct {
	service string

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rejectedTotal   *prometheus.CounterVec
	staleTotal      *prometheus.CounterVec
	livePreviews    prometheus.Gauge
	breakerOpen     *prometheus.GaugeVec
}

func NewWorkspaceMetrics(service string, registerer prometheus.Registerer) *WorkspaceMetrics {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feature",
			Name:      "requests_total",
			Help:      "Backend-bound feature requests by outcome.",
		},
		[]string{"service", "feature", "operation", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feature",
			Name:      "request_duration_seconds",
			Help:      "Backend round trip per feature operation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "feature", "operation"},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feature",
			Name:      "rejected_actions_total",
			Help:      "User actions refused by a state guard.",
		},
		[]string{"service", "feature", "operation", "reason"},
	)
	staleTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feature",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because their session was reset.",
		},
		[]string{"service", "feature", "operation"},
	)
	livePreviews := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "handles_live",
			Help:      "Preview handles currently held.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker for an operation is open.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(requestsTotal, requestDuration, rejectedTotal, staleTotal, livePreviews, breakerOpen)

	return &WorkspaceMetrics{
		service:         service,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		rejectedTotal:   rejectedTotal,
		staleTotal:      staleTotal,
		livePreviews:    livePreviews,
		breakerOpen:     breakerOpen,
	}
}

func (m *WorkspaceMetrics) ObserveRequest(feature domain.Feature, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	label := featureLabel(feature)
	m.requestsTotal.WithLabelValues(m.service, label, operation, status).Inc()
	m.requestDuration.WithLabelValues(m.service, label, operation).Observe(duration.Seconds())
}

func (m *WorkspaceMetrics) ObserveRejected(feature domain.Feature, operation, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.rejectedTotal.WithLabelValues(m.service, featureLabel(feature), operation, reason).Inc()
}

func (m *WorkspaceMetrics) ObserveStale(feature domain.Feature, operation string) {
	m.staleTotal.WithLabelValues(m.service, featureLabel(feature), operation).Inc()
}

func (m *WorkspaceMetrics) SetLivePreviews(n int) {
	m.livePreviews.Set(float64(n))
}

// ObserveBreaker matches resilience.Config.OnStateChange.
func (m *WorkspaceMetrics) ObserveBreaker(operation string, open bool) {
	value := 0.0
	if open {
		value = 1
	}
	m.breakerOpen.WithLabelValues(m.service, operation).Set(value)
}

func featureLabel(feature domain.Feature) string {
	if feature == domain.FeatureNone {
		return "library"
	}
	return string(feature)
}
