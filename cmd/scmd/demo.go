package main

import (
	"fmt"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/dnagent"
	"github.com/scmregistry/core/pkg/registry"
)

// spawnDemoAgents registers n simulated datanodes against reg and starts
// their heartbeat loops, for use by `scmd demo`.
func spawnDemoAgents(reg *registry.Registry, n int) error {
	for i := 0; i < n; i++ {
		a, err := dnagent.New(reg, dnagent.Config{
			HostName:  fmt.Sprintf("demo-dn-%d", i),
			IPAddress: fmt.Sprintf("10.0.0.%d", i+1),
			DataVolumes: []dnagent.Volume{
				{Type: datanode.StorageDisk, Capacity: 1 << 40, Used: int64(i) << 30, Remaining: (1 << 40) - int64(i)<<30, Healthy: true},
			},
			MetaVolumes: []dnagent.Volume{
				{Type: datanode.StorageSSD, Capacity: 1 << 30, Used: 1 << 20, Remaining: (1 << 30) - (1 << 20), Healthy: true},
			},
			HeartbeatInterval: 2 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("spawn demo agent %d: %w", i, err)
		}
		a.Run()
	}
	fmt.Printf("✓ %d simulated datanodes registered\n", n)
	return nil
}

// printClusterStat prints a one-line cluster summary, used by `scmd demo`.
// (`scmd stats` prints its own line from the admin API.)
func printClusterStat(reg *registry.Registry) {
	stat := reg.ClusterStat()
	fmt.Printf("nodes=%d healthy=%d capacity=%d used=%d\n",
		stat.NodeCount, stat.HealthyCount, stat.Usage.Capacity, stat.Usage.Used)
}
