/*
Package metrics exposes the registry's observable surface as Prometheus
collectors: datanode counts by health/operational-state, cluster
capacity, health-scanner skipped ticks, raft leadership/term, and
heartbeat processing. registry.MetricsCollector (in pkg/registry, to
avoid an import cycle) polls a *registry.Registry on a ticker and
updates the gauges; metrics are served over /metrics via promhttp.
CommandQueueDepth and PipelinesTotal are registered here but no
collector in this module sets them.
*/
package metrics
