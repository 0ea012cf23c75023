package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scmregistry/core/pkg/adminapi"
	"github.com/scmregistry/core/pkg/config"
	"github.com/scmregistry/core/pkg/consensus"
	"github.com/scmregistry/core/pkg/log"
	"github.com/scmregistry/core/pkg/metrics"
	"github.com/scmregistry/core/pkg/opstatestore"
	"github.com/scmregistry/core/pkg/pipeline"
	"github.com/scmregistry/core/pkg/registry"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "scmd",
	Short:   "Datanode registry and command dispatch core",
	Long:    `scmd runs the datanode registry: heartbeat processing, health-state tracking, pipeline formation, and raft-backed leader election, as a single binary.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("scmd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(demoCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single SCM instance: raft, registry, pipeline manager, and metrics",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Path to YAML config file (required)")
	_ = runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Init(cfg.ToLogConfig())

	registryCfg, err := cfg.ToRegistryConfig()
	if err != nil {
		return fmt.Errorf("build registry config: %w", err)
	}

	scm, err := consensus.New(consensus.Config{NodeID: cfg.NodeID, BindAddr: cfg.BindAddr, DataDir: cfg.DataDir})
	if err != nil {
		return fmt.Errorf("create consensus node: %w", err)
	}
	if err := scm.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrap raft: %w", err)
	}
	fmt.Println("✓ Raft bootstrapped")

	opStore, err := opstatestore.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open op-state store: %w", err)
	}
	fmt.Println("✓ Op-state audit log opened")

	reg := registry.New(registryCfg, registry.Collaborators{SCMContext: scm, OpStateRecorder: opStore.AsRecorder()})
	reg.Run()
	fmt.Println("✓ Registry started")

	pm := pipeline.NewManager(reg, 3)
	reg.SetPipelineManager(pm)
	pm.Start()
	fmt.Println("✓ Pipeline manager started")

	collector := registry.NewMetricsCollector(reg, scm)
	collector.Start()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("raft", true, "bootstrapped")
	metrics.RegisterComponent("registry", true, "running")

	metricsAddr := cfg.Metrics.BindAddr
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	mux.Handle("/api/", adminapi.Mux(reg, opStore.AsHistorySource()))
	errCh := make(chan error, 1)
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", metricsAddr)
	fmt.Printf("✓ Admin API: http://%s/api/nodes\n", metricsAddr)

	fmt.Println("SCM is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
	}

	pm.Stop()
	collector.Stop()
	reg.Close()
	if err := opStore.Close(); err != nil {
		return fmt.Errorf("close op-state store: %w", err)
	}
	if err := scm.Shutdown(); err != nil {
		return fmt.Errorf("shutdown raft: %w", err)
	}
	fmt.Println("✓ Shutdown complete")
	return nil
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an in-process registry with simulated datanodes, printing cluster stats",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().Int("nodes", 5, "Number of simulated datanodes to register")
	demoCmd.Flags().Duration("duration", 30*time.Second, "How long to run before exiting")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	n, _ := cmd.Flags().GetInt("nodes")
	duration, _ := cmd.Flags().GetDuration("duration")

	scm, err := consensus.New(consensus.Config{
		NodeID:   "demo-1",
		BindAddr: "127.0.0.1:0",
		DataDir:  os.TempDir() + "/scmd-demo",
	})
	if err != nil {
		return fmt.Errorf("create consensus node: %w", err)
	}
	if err := scm.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrap raft: %w", err)
	}
	defer scm.Shutdown()

	reg := registry.New(registry.DefaultConfig(), registry.Collaborators{SCMContext: scm})
	reg.Run()
	defer reg.Close()

	pm := pipeline.NewManager(reg, 3)
	reg.SetPipelineManager(pm)
	pm.Start()
	defer pm.Stop()

	if err := spawnDemoAgents(reg, n); err != nil {
		return err
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	deadline := time.After(duration)
	for {
		select {
		case <-ticker.C:
			printClusterStat(reg)
		case <-deadline:
			fmt.Println("demo finished")
			return nil
		}
	}
}
