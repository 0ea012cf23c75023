package dnagent

import (
	"fmt"
	"sync"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/log"
	"github.com/scmregistry/core/pkg/registry"
)

// Volume describes one simulated storage volume the agent reports at
// registration and on every SetVolumes call.
type Volume struct {
	Type      datanode.StorageType
	Capacity  int64
	Used      int64
	Remaining int64
	Healthy   bool
}

// Config holds one simulated datanode's identity and reporting
// intervals.
type Config struct {
	HostName          string
	IPAddress         string
	Layout            datanode.LayoutInfo
	DataVolumes       []Volume
	MetaVolumes       []Volume
	HeartbeatInterval time.Duration
}

// Agent simulates a single datanode against an in-process Registry: it
// registers once (with its initial storage report), then heartbeats on a
// ticker, applying whatever commands the registry hands back. Storage is
// reported again only when SetVolumes is called. There is no wire
// protocol — Agent is a test and demo harness, not a deployable binary.
type Agent struct {
	reg *registry.Registry
	cfg Config

	mu        sync.RWMutex
	uuid      datanode.ID
	opState   datanode.OpState
	lastCmds  []datanode.Command

	stopCh chan struct{}
}

// New registers cfg against reg and returns a running Agent handle.
func New(reg *registry.Registry, cfg Config) (*Agent, error) {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}

	resp, err := reg.Register(registry.RegisterRequest{
		HostName:   cfg.HostName,
		IPAddress:  cfg.IPAddress,
		Layout:     cfg.Layout,
		NodeReport: volumesToNodeReport(cfg.DataVolumes, cfg.MetaVolumes),
	})
	if err != nil {
		return nil, fmt.Errorf("dnagent: register %s: %w", cfg.HostName, err)
	}

	a := &Agent{
		reg:     reg,
		cfg:     cfg,
		uuid:    resp.UUID,
		opState: datanode.OpState{State: datanode.OpStateInService},
		stopCh:  make(chan struct{}),
	}

	log.WithDatanodeID(a.uuid.String()).Info().Str("host", cfg.HostName).Msg("dnagent registered")
	return a, nil
}

// UUID returns the identity the registry assigned at first contact.
func (a *Agent) UUID() datanode.ID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.uuid
}

// LastCommands returns the commands delivered on the most recent
// heartbeat response, for test assertions.
func (a *Agent) LastCommands() []datanode.Command {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]datanode.Command(nil), a.lastCmds...)
}

// Run starts the heartbeat loop in a goroutine and returns immediately,
// mirroring the teacher's worker heartbeatLoop.
func (a *Agent) Run() {
	go a.heartbeatLoop()
}

// Stop halts the heartbeat loop.
func (a *Agent) Stop() { close(a.stopCh) }

func (a *Agent) heartbeatLoop() {
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Heartbeat(); err != nil {
				log.WithDatanodeID(a.uuid.String()).Error().Err(err).Msg("heartbeat failed")
			}
		case <-a.stopCh:
			return
		}
	}
}

// Heartbeat sends a single heartbeat and, if any commands come back,
// applies the ones this agent understands (SetNodeOperationalState).
// FinalizeNewLayoutVersion commands are recorded but not acted on — a
// simulated datanode has no on-disk layout to actually migrate.
func (a *Agent) Heartbeat() error {
	a.mu.RLock()
	uuid := a.uuid
	opState := a.opState
	a.mu.RUnlock()

	resp, err := a.reg.ProcessHeartbeat(registry.Heartbeat{
		UUID:            uuid,
		ReportedOpState: opState,
		QueueReport:     datanode.CommandQueueReport{},
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.lastCmds = resp.Commands
	for _, cmd := range resp.Commands {
		if cmd.Type == datanode.CommandSetNodeOperationalState {
			if p, ok := cmd.Payload.(datanode.SetNodeOperationalStatePayload); ok {
				a.opState = datanode.OpState{State: p.OperationalState, ExpiryEpochSec: p.ExpiryEpochSec}
			}
		}
	}
	a.mu.Unlock()

	return nil
}

// SetVolumes replaces the agent's simulated data/metadata volumes and
// immediately pushes the change as a node report, simulating a datanode
// whose disk inventory changes after registration (new volume mounted,
// one marked unhealthy). The initial report is ingested by Register
// itself (spec.md §4.5 step 5).
func (a *Agent) SetVolumes(dataVolumes, metaVolumes []Volume) error {
	a.mu.Lock()
	a.cfg.DataVolumes = dataVolumes
	a.cfg.MetaVolumes = metaVolumes
	a.mu.Unlock()
	return a.reg.ProcessNodeReport(a.uuid, volumesToNodeReport(dataVolumes, metaVolumes))
}

func volumesToNodeReport(dataVolumes, metaVolumes []Volume) datanode.NodeReport {
	toReports := func(vols []Volume) []datanode.StorageReport {
		out := make([]datanode.StorageReport, len(vols))
		for i, v := range vols {
			out[i] = datanode.StorageReport{
				StorageType: v.Type,
				Capacity:    v.Capacity,
				Used:        v.Used,
				Remaining:   v.Remaining,
				Healthy:     v.Healthy,
			}
		}
		return out
	}
	return datanode.NodeReport{
		StorageReports:     toReports(dataVolumes),
		MetaStorageReports: toReports(metaVolumes),
	}
}
