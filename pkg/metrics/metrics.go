package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DatanodesTotal counts registered datanodes by operational state and
	// health.
	DatanodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scmregistry_datanodes_total",
			Help: "Total number of registered datanodes by operational state and health",
		},
		[]string{"op_state", "health"},
	)

	ClusterCapacityBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scmregistry_cluster_capacity_bytes",
			Help: "Total reported storage capacity across non-dead datanodes",
		},
	)

	ClusterUsedBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scmregistry_cluster_used_bytes",
			Help: "Total reported storage used across non-dead datanodes",
		},
	)

	HealthScannerSkippedTicks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scmregistry_health_scanner_skipped_ticks_total",
			Help: "Number of health scanner ticks skipped while paused",
		},
	)

	CommandQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scmregistry_command_queue_depth",
			Help: "Pending commands per datanode by command type",
		},
		[]string{"datanode_uuid", "command_type"},
	)

	RaftIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scmregistry_raft_is_leader",
			Help: "Whether this SCM currently holds raft leadership (1=leader, 0=follower)",
		},
	)

	RaftTerm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scmregistry_raft_term",
			Help: "Current raft term as observed by this SCM",
		},
	)

	HeartbeatProcessingFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scmregistry_heartbeat_processing_failed_total",
			Help: "Total heartbeats that failed processing (e.g. unknown datanode)",
		},
	)

	HeartbeatProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scmregistry_heartbeat_processing_duration_seconds",
			Help:    "Time to process one heartbeat",
			Buckets: prometheus.DefBuckets,
		},
	)

	PipelinesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scmregistry_pipelines_total",
			Help: "Total number of formed pipelines",
		},
	)
)

func init() {
	prometheus.MustRegister(DatanodesTotal)
	prometheus.MustRegister(ClusterCapacityBytes)
	prometheus.MustRegister(ClusterUsedBytes)
	prometheus.MustRegister(HealthScannerSkippedTicks)
	prometheus.MustRegister(CommandQueueDepth)
	prometheus.MustRegister(RaftIsLeader)
	prometheus.MustRegister(RaftTerm)
	prometheus.MustRegister(HeartbeatProcessingFailedTotal)
	prometheus.MustRegister(HeartbeatProcessingDuration)
	prometheus.MustRegister(PipelinesTotal)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a small helper for timing an operation and observing its
// duration to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to the histogram in vec
// selected by labels.
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labels ...string) {
	vec.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
