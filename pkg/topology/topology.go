package topology

import (
	"sync"

	"github.com/scmregistry/core/pkg/datanode"
)

// NodeResolver resolves a datanode's rack path from one of its addresses.
// A nil-ish empty return means "unresolved", which the registry treats as
// allowed rather than an error.
type NodeResolver interface {
	Resolve(address string) string
}

// NetworkTopology tracks which rack each datanode currently belongs to. The
// registry calls Add on first registration and Update whenever a rename or
// a resolver re-run moves a node to a different rack path.
type NetworkTopology interface {
	Add(uuid datanode.ID, rackPath string)
	Update(uuid datanode.ID, rackPath string)
	Remove(uuid datanode.ID)
	Contains(uuid datanode.ID) bool
	RackPath(uuid datanode.ID) (string, bool)
}

// StaticResolver resolves every address to the same configured rack path.
// It is the simplest NodeResolver and a reasonable default for single-rack
// or flat-network clusters.
type StaticResolver struct {
	RackPath string
}

func (s StaticResolver) Resolve(string) string { return s.RackPath }

// PrefixResolver maps an address prefix to a rack path, falling back to
// Default when nothing matches. Longer prefixes are tried first so a
// resolver configured with both "10.0." and "10.0.1." picks the more
// specific match.
type PrefixResolver struct {
	Default string
	byLen   []prefixRack
}

type prefixRack struct {
	prefix string
	rack   string
}

// NewPrefixResolver builds a PrefixResolver from a prefix->rack mapping.
func NewPrefixResolver(mapping map[string]string, def string) *PrefixResolver {
	r := &PrefixResolver{Default: def}
	for p, rack := range mapping {
		r.byLen = append(r.byLen, prefixRack{prefix: p, rack: rack})
	}
	// Longest prefix first.
	for i := 1; i < len(r.byLen); i++ {
		for j := i; j > 0 && len(r.byLen[j].prefix) > len(r.byLen[j-1].prefix); j-- {
			r.byLen[j], r.byLen[j-1] = r.byLen[j-1], r.byLen[j]
		}
	}
	return r
}

func (r *PrefixResolver) Resolve(address string) string {
	for _, pr := range r.byLen {
		if len(address) >= len(pr.prefix) && address[:len(pr.prefix)] == pr.prefix {
			return pr.rack
		}
	}
	return r.Default
}

// InMemoryTopology is a concurrency-safe default NetworkTopology.
type InMemoryTopology struct {
	mu    sync.RWMutex
	racks map[datanode.ID]string
}

// NewInMemoryTopology constructs an empty topology.
func NewInMemoryTopology() *InMemoryTopology {
	return &InMemoryTopology{racks: make(map[datanode.ID]string)}
}

func (t *InMemoryTopology) Add(uuid datanode.ID, rackPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.racks[uuid] = rackPath
}

func (t *InMemoryTopology) Update(uuid datanode.ID, rackPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.racks[uuid] = rackPath
}

func (t *InMemoryTopology) Remove(uuid datanode.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.racks, uuid)
}

func (t *InMemoryTopology) Contains(uuid datanode.ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.racks[uuid]
	return ok
}

func (t *InMemoryTopology) RackPath(uuid datanode.ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rp, ok := t.racks[uuid]
	return rp, ok
}
