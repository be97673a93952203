package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the client runtime
type Registry struct {
	// Connection Metrics
	ConnectionState        *prometheus.GaugeVec
	ConnectsTotal          prometheus.Counter
	ReconnectAttemptsTotal prometheus.Counter
	HeartbeatsSentTotal    prometheus.Counter
	MessagesReceivedTotal  *prometheus.CounterVec
	MessagesSentTotal      *prometheus.CounterVec
	SendFailuresTotal      prometheus.Counter

	// Execution Metrics
	RunsTotal             *prometheus.CounterVec
	RunDurationSeconds    prometheus.Histogram
	ValidationErrorsTotal prometheus.Counter
	RunNodesTotal         *prometheus.CounterVec

	// Port Reconciler Metrics
	ReconcilePassesTotal   prometheus.Counter
	PortCountChangesTotal  prometheus.Counter
	ReconcileNodesInspected prometheus.Histogram

	// Workspace Metrics
	WorkspaceOpsTotal    *prometheus.CounterVec
	WorkspaceOpDuration  *prometheus.HistogramVec
	WorkspaceSizeBytes   prometheus.Histogram

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initConnectionMetrics()
	r.initExecutionMetrics()
	r.initPortMetrics()
	r.initWorkspaceMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
