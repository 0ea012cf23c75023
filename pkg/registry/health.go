package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/log"
)

// healthStateMachine is the ticker-driven scanner of spec.md §4.2: it
// walks the node table on an interval and demotes any record whose last
// heartbeat has aged past the stale/dead thresholds. Promotion back to
// HEALTHY happens inline on the heartbeat path (heartbeat.go), not here.
type healthStateMachine struct {
	reg            *Registry
	staleThreshold time.Duration
	deadThreshold  time.Duration
	scanInterval   time.Duration

	stopCh   chan struct{}
	pauseCh  chan struct{}
	resumeCh chan struct{}
	paused   atomic.Bool

	mu             sync.Mutex
	skippedChecks  int64
	lastScanMillis int64
}

func newHealthStateMachine(reg *Registry, stale, dead, interval time.Duration) *healthStateMachine {
	return &healthStateMachine{
		reg:            reg,
		staleThreshold: stale,
		deadThreshold:  dead,
		scanInterval:   interval,
		stopCh:         make(chan struct{}),
		pauseCh:        make(chan struct{}, 1),
		resumeCh:       make(chan struct{}, 1),
	}
}

// Start launches the scan loop in its own goroutine.
func (h *healthStateMachine) Start() { go h.loop() }

// Stop halts the scan loop permanently.
func (h *healthStateMachine) Stop() { close(h.stopCh) }

// Pause suspends scanning without stopping the goroutine — used by
// tests that want to advance a FakeClock and then trigger exactly one
// scan deterministically (spec.md §8 scenario S6).
func (h *healthStateMachine) Pause() {
	h.paused.Store(true)
}

// Resume lifts a Pause.
func (h *healthStateMachine) Resume() {
	h.paused.Store(false)
}

// SkippedChecks reports how many scan ticks were skipped while paused,
// surfaced as a metrics gauge.
func (h *healthStateMachine) SkippedChecks() int64 {
	return atomic.LoadInt64(&h.skippedChecks)
}

func (h *healthStateMachine) loop() {
	ticker := time.NewTicker(h.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if h.paused.Load() {
				atomic.AddInt64(&h.skippedChecks, 1)
				continue
			}
			h.scanOnce()
		case <-h.stopCh:
			return
		}
	}
}

// scanOnce performs a single full pass. Exported indirectly through
// Registry for tests that want to force a scan outside the ticker.
func (h *healthStateMachine) scanOnce() {
	now := h.reg.clock.NowMillis()

	h.reg.mu.Lock()
	type transition struct {
		id   datanode.ID
		from datanode.HealthState
		to   datanode.HealthState
	}
	var transitions []transition

	for _, rec := range h.reg.nodes.all() {
		age := time.Duration(now-rec.LastHeartbeatMillis) * time.Millisecond
		from := rec.Health

		switch {
		case age >= h.deadThreshold:
			rec.Health = datanode.HealthDead
		case age >= h.staleThreshold:
			if rec.Health == datanode.HealthHealthy || rec.Health == datanode.HealthHealthyReadOnly {
				rec.Health = datanode.HealthStale
			}
		}

		if rec.Health != from {
			transitions = append(transitions, transition{id: rec.Identity.UUID, from: from, to: rec.Health})
		}
	}
	h.mu.Lock()
	h.lastScanMillis = now
	h.mu.Unlock()
	h.reg.mu.Unlock()

	for _, tr := range transitions {
		log.WithDatanodeID(tr.id.String()).Info().
			Str("from", string(tr.from)).Str("to", string(tr.to)).Msg("datanode health transition")
		switch tr.to {
		case datanode.HealthStale:
			h.reg.bridge.FireNodeStale(tr.id)
		case datanode.HealthDead:
			h.reg.bridge.FireNodeDead(tr.id)
		}
	}
}
