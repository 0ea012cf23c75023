package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/scmregistry/core/pkg/adminapi"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Inspect datanodes on a running scmd instance",
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datanodes",
	RunE:  runNodesList,
}

var nodesStatusCmd = &cobra.Command{
	Use:   "status <uuid>",
	Short: "Show one datanode's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesStatus,
}

var nodesSetOpStateCmd = &cobra.Command{
	Use:   "set-opstate <uuid> <state>",
	Short: "Request an operational-state change, reconciled on the datanode's next heartbeat",
	Args:  cobra.ExactArgs(2),
	RunE:  runNodesSetOpState,
}

var nodesHistoryCmd = &cobra.Command{
	Use:   "history <uuid>",
	Short: "Print a datanode's recorded operational-state transitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesHistory,
}

var nodesFindCmd = &cobra.Command{
	Use:   "find <address>",
	Short: "Resolve a hostname or IP to the datanode UUID(s) indexed under it",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesFind,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cluster-wide capacity and health counts",
	RunE:  runStats,
}

func init() {
	nodesListCmd.Flags().String("admin-addr", "127.0.0.1:9090", "scmd admin API address")
	nodesStatusCmd.Flags().String("admin-addr", "127.0.0.1:9090", "scmd admin API address")
	nodesSetOpStateCmd.Flags().String("admin-addr", "127.0.0.1:9090", "scmd admin API address")
	nodesSetOpStateCmd.Flags().Int64("expiry", 0, "Expiry epoch seconds for the requested state")
	nodesHistoryCmd.Flags().String("admin-addr", "127.0.0.1:9090", "scmd admin API address")
	nodesFindCmd.Flags().String("admin-addr", "127.0.0.1:9090", "scmd admin API address")
	statsCmd.Flags().String("admin-addr", "127.0.0.1:9090", "scmd admin API address")

	nodesCmd.AddCommand(nodesListCmd)
	nodesCmd.AddCommand(nodesStatusCmd)
	nodesCmd.AddCommand(nodesSetOpStateCmd)
	nodesCmd.AddCommand(nodesHistoryCmd)
	nodesCmd.AddCommand(nodesFindCmd)

	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(statsCmd)
}

func runNodesList(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("admin-addr")
	var nodes []adminapi.NodeView
	if err := getJSON(addr, "/api/nodes", &nodes); err != nil {
		return err
	}
	if len(nodes) == 0 {
		fmt.Println("No nodes found")
		return nil
	}
	fmt.Printf("%-36s %-20s %-16s %-10s\n", "UUID", "HOST", "OP_STATE", "HEALTH")
	for _, n := range nodes {
		fmt.Printf("%-36s %-20s %-16s %-10s\n", n.UUID, n.HostName, n.OperationalState, n.Health)
	}
	return nil
}

func runNodesStatus(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("admin-addr")
	var node adminapi.NodeView
	if err := getJSON(addr, "/api/nodes/"+args[0], &node); err != nil {
		return err
	}
	fmt.Printf("UUID:        %s\n", node.UUID)
	fmt.Printf("Host:        %s\n", node.HostName)
	fmt.Printf("IP:          %s\n", node.IPAddress)
	fmt.Printf("Op state:    %s\n", node.OperationalState)
	fmt.Printf("Health:      %s\n", node.Health)
	fmt.Printf("Rack:        %s\n", node.NetworkLocation)
	return nil
}

func runNodesSetOpState(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("admin-addr")
	expiry, _ := cmd.Flags().GetInt64("expiry")

	body, err := json.Marshal(map[string]any{"state": args[1], "expiryEpochSec": expiry})
	if err != nil {
		return err
	}
	resp, err := http.Post(fmt.Sprintf("http://%s/api/nodes/%s/opstate", addr, args[0]), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request admin API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("admin API returned %s", resp.Status)
	}
	fmt.Println("✓ operational state change requested")
	return nil
}

func runNodesHistory(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("admin-addr")
	var transitions []adminapi.TransitionView
	if err := getJSON(addr, "/api/nodes/"+args[0]+"/history", &transitions); err != nil {
		return err
	}
	if len(transitions) == 0 {
		fmt.Println("No recorded transitions")
		return nil
	}
	fmt.Printf("%-20s %-16s %s\n", "STATE", "EXPIRY_EPOCH", "RECORDED_AT_EPOCH")
	for _, t := range transitions {
		fmt.Printf("%-20s %-16d %d\n", t.State, t.ExpiryEpochSec, t.RecordedAtUnix)
	}
	return nil
}

func runNodesFind(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("admin-addr")
	var uuids []string
	if err := getJSON(addr, "/api/nodes-by-address?addr="+args[0], &uuids); err != nil {
		return err
	}
	if len(uuids) == 0 {
		fmt.Println("No datanode indexed under that address")
		return nil
	}
	for _, id := range uuids {
		fmt.Println(id)
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("admin-addr")
	var stats adminapi.ClusterView
	if err := getJSON(addr, "/api/stats", &stats); err != nil {
		return err
	}
	fmt.Printf("nodes=%d healthy=%d stale=%d dead=%d capacity=%d used=%d remaining=%d\n",
		stats.NodeCount, stats.HealthyCount, stats.StaleCount, stats.DeadCount,
		stats.Capacity, stats.Used, stats.Remaining)
	return nil
}

func getJSON(addr, path string, v any) error {
	resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
	if err != nil {
		return fmt.Errorf("request admin API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("admin API returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
