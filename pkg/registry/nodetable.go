package registry

import (
	"sort"

	"github.com/scmregistry/core/pkg/datanode"
)

// nodeTable is the keyed datanode store, per spec.md §4.1. It is not
// independently synchronized: every method assumes the caller already
// holds Registry's registry-wide lock in the right mode. The only
// secondary index is byAddress, maintained alongside the primary map on
// every mutation; there is no health or op-state index, so listByStatus
// and count scan the primary map.
//
// byAddress indexes both hostName and ipAddress simultaneously — not
// just whichever one Config.UseHostname prefers for resolver/topology
// input — since lookupByAddress must answer "who is this?" regardless
// of which address a caller happens to have (spec.md §3 invariant 1,
// scenarios S1/S3). A single address can be shared by more than one
// historical registration attempt racing a restart, so each address
// maps to a UUID set, not a single ID.
type nodeTable struct {
	byUUID    map[datanode.ID]*datanode.Record
	byAddress map[string]map[datanode.ID]struct{}
}

func newNodeTable() *nodeTable {
	return &nodeTable{
		byUUID:    make(map[datanode.ID]*datanode.Record),
		byAddress: make(map[string]map[datanode.ID]struct{}),
	}
}

// add inserts a brand-new record. Fails with ErrAlreadyExists if the UUID
// is already present — callers that mean "re-register" should use update.
func (t *nodeTable) add(rec *datanode.Record) error {
	if _, ok := t.byUUID[rec.Identity.UUID]; ok {
		return ErrAlreadyExists
	}
	t.byUUID[rec.Identity.UUID] = rec
	t.indexAddress(rec.Identity.HostName, rec.Identity.UUID)
	t.indexAddress(rec.Identity.IPAddress, rec.Identity.UUID)
	return nil
}

// get returns the live record for a UUID, or ErrNotFound. The returned
// pointer is the registry's own copy — callers under the write lock may
// mutate it in place; anyone else must Clone() before reading fields.
func (t *nodeTable) get(id datanode.ID) (*datanode.Record, error) {
	rec, ok := t.byUUID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// lookupByAddress resolves a hostname or IP to the set of UUIDs
// currently indexed under it, as a stable-ordered snapshot.
func (t *nodeTable) lookupByAddress(addr string) []datanode.ID {
	set, ok := t.byAddress[addr]
	if !ok {
		return nil
	}
	out := make([]datanode.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// updateAddress re-keys the address index after a datanode's
// hostname and/or IP change underneath an existing UUID (spec.md §9,
// Open Question 1: rename is allowed, UUID is authoritative). oldHost/
// oldIP are the previously-indexed values; newHost/newIP replace them.
func (t *nodeTable) updateAddress(id datanode.ID, oldHost, newHost, oldIP, newIP string) {
	if oldHost != newHost {
		t.unindexAddress(oldHost, id)
		t.indexAddress(newHost, id)
	}
	if oldIP != newIP {
		t.unindexAddress(oldIP, id)
		t.indexAddress(newIP, id)
	}
}

func (t *nodeTable) indexAddress(addr string, id datanode.ID) {
	if addr == "" {
		return
	}
	set, ok := t.byAddress[addr]
	if !ok {
		set = make(map[datanode.ID]struct{})
		t.byAddress[addr] = set
	}
	set[id] = struct{}{}
}

func (t *nodeTable) unindexAddress(addr string, id datanode.ID) {
	if addr == "" {
		return
	}
	set, ok := t.byAddress[addr]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.byAddress, addr)
	}
}

// remove deletes a record entirely. Nothing in the module calls it, so
// the registry never forgets a UUID once seen.
func (t *nodeTable) remove(id datanode.ID) {
	rec, ok := t.byUUID[id]
	if !ok {
		return
	}
	t.unindexAddress(rec.Identity.HostName, id)
	t.unindexAddress(rec.Identity.IPAddress, id)
	delete(t.byUUID, id)
}

// all returns every record, unordered. Callers needing a stable read
// should Clone() before releasing the registry lock.
func (t *nodeTable) all() []*datanode.Record {
	out := make([]*datanode.Record, 0, len(t.byUUID))
	for _, rec := range t.byUUID {
		out = append(out, rec)
	}
	return out
}

// listByStatus filters by operational state and/or health. A nil
// predicate argument (empty string) skips that filter.
func (t *nodeTable) listByStatus(opState datanode.OperationalState, health datanode.HealthState) []*datanode.Record {
	out := make([]*datanode.Record, 0, len(t.byUUID))
	for _, rec := range t.byUUID {
		if opState != "" && rec.PersistedOpState != opState {
			continue
		}
		if health != "" && rec.Health != health {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// count is listByStatus without the allocation, for stats paths that
// only need the number.
func (t *nodeTable) count(opState datanode.OperationalState, health datanode.HealthState) int {
	n := 0
	for _, rec := range t.byUUID {
		if opState != "" && rec.PersistedOpState != opState {
			continue
		}
		if health != "" && rec.Health != health {
			continue
		}
		n++
	}
	return n
}

func (t *nodeTable) size() int { return len(t.byUUID) }
