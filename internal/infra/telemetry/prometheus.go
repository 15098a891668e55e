package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
	authRejected     *prometheus.CounterVec
	backendRetries   prometheus.Counter
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whistle_tool_calls_total",
				Help: "Total number of tool calls by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "whistle_tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whistle_rate_limited_total",
				Help: "Total number of tool calls rejected by the rate limiter",
			},
			[]string{"tool"},
		),
		authRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whistle_auth_rejected_total",
				Help: "Total number of protected tool calls rejected for missing or malformed credentials",
			},
			[]string{"tool"},
		),
		backendRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "whistle_backend_retries_total",
				Help: "Total number of retried backend requests",
			},
		),
	}
}

func (m *PrometheusMetrics) ObserveToolCall(tool, status string, duration time.Duration) {
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) ObserveRateLimited(tool string) {
	m.rateLimited.WithLabelValues(tool).Inc()
}

func (m *PrometheusMetrics) ObserveAuthRejected(tool string) {
	m.authRejected.WithLabelValues(tool).Inc()
}

func (m *PrometheusMetrics) ObserveBackendRetry() {
	m.backendRetries.Inc()
}

var _ Metrics = (*PrometheusMetrics)(nil)
