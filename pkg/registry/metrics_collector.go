package registry

import (
	"time"

	"github.com/scmregistry/core/pkg/metrics"
)

// raftStats is the slice of consensus.SCM a Collector needs, kept
// narrow so tests can supply a stub without pulling in raft.
type raftStats interface {
	IsLeader() bool
	TermOfLeader() (uint64, bool)
}

// MetricsCollector polls a Registry (and optionally an SCM) on an
// interval and updates pkg/metrics's Prometheus gauges, mirroring the
// teacher's manager-embedded metrics collector.
type MetricsCollector struct {
	reg    *Registry
	scm    raftStats
	stopCh chan struct{}
}

// NewMetricsCollector builds a collector. scm may be nil, in which case
// the raft gauges are left at zero.
func NewMetricsCollector(reg *Registry, scm raftStats) *MetricsCollector {
	return &MetricsCollector{reg: reg, scm: scm, stopCh: make(chan struct{})}
}

// Start begins polling on a 15s ticker, collecting once immediately.
func (c *MetricsCollector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts polling.
func (c *MetricsCollector) Stop() { close(c.stopCh) }

func (c *MetricsCollector) collect() {
	c.collectDatanodeMetrics()
	c.collectRaftMetrics()
	metrics.HealthScannerSkippedTicks.Set(float64(c.reg.SkippedHealthChecks()))
}

func (c *MetricsCollector) collectDatanodeMetrics() {
	metrics.DatanodesTotal.Reset()
	counts := make(map[[2]string]int)
	for _, rec := range c.reg.List("", "") {
		key := [2]string{string(rec.PersistedOpState), string(rec.Health)}
		counts[key]++
	}
	for key, n := range counts {
		metrics.DatanodesTotal.WithLabelValues(key[0], key[1]).Set(float64(n))
	}

	stat := c.reg.ClusterStat()
	metrics.ClusterCapacityBytes.Set(float64(stat.Usage.Capacity))
	metrics.ClusterUsedBytes.Set(float64(stat.Usage.Used))
}

func (c *MetricsCollector) collectRaftMetrics() {
	if c.scm == nil {
		return
	}
	if c.scm.IsLeader() {
		metrics.RaftIsLeader.Set(1)
	} else {
		metrics.RaftIsLeader.Set(0)
	}
	if term, ok := c.scm.TermOfLeader(); ok {
		metrics.RaftTerm.Set(float64(term))
	}
}
