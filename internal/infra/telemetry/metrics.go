package telemetry

import "time"

// Metrics is the observation surface the middleware depends on.
type Metrics interface {
	ObserveToolCall(tool, status string, duration time.Duration)
	ObserveRateLimited(tool string)
	ObserveAuthRejected(tool string)
	ObserveBackendRetry()
}

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveToolCall(_ string, _ string, _ time.Duration) {}

func (n *NoopMetrics) ObserveRateLimited(_ string) {}

func (n *NoopMetrics) ObserveAuthRejected(_ string) {}

func (n *NoopMetrics) ObserveBackendRetry() {}

var _ Metrics = (*NoopMetrics)(nil)
