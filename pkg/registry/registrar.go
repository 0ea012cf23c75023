package registry

import (
	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/log"
)

// RegisterRequest is what a datanode presents at first contact or on
// every restart, per spec.md §4.5.
type RegisterRequest struct {
	UUID       datanode.ID // empty means "assign me one"
	HostName   string
	IPAddress  string
	Layout     datanode.LayoutInfo
	NodeReport datanode.NodeReport // ingested on first contact, per spec.md §4.5 step 5
}

// RegisterResponse tells the datanode its authoritative identity and
// layout. A rejected layout is reported as ErrLayoutMismatch, not here.
type RegisterResponse struct {
	UUID   datanode.ID
	Layout datanode.LayoutInfo
}

// Register implements spec.md §4.5: a datanode layout newer than the
// SCM's is rejected outright (ErrLayoutMismatch); an older layout is
// accepted (the cluster hasn't finalized past it yet) and the SCM will
// later issue FinalizeNewLayoutVersion once the cluster crosses that
// checkpoint. A known UUID re-registers in place and may trigger an
// address-change event; an unknown UUID is a first-contact insert.
func (r *Registry) Register(req RegisterRequest) (RegisterResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Layout.SoftwareLayoutVersion > r.clusterLayout.SoftwareLayoutVersion {
		return RegisterResponse{}, ErrLayoutMismatch
	}

	if req.UUID != "" {
		if existing, err := r.nodes.get(req.UUID); err == nil {
			return r.reregister(existing, req)
		}
	}

	id := req.UUID
	if id == "" {
		id = datanode.NewID()
	}
	identity := datanode.Identity{UUID: id, HostName: req.HostName, IPAddress: req.IPAddress}
	rec := datanode.NewRecord(identity, req.Layout)
	rec.LastHeartbeatMillis = r.clock.NowMillis()
	applyNodeReport(rec, req.NodeReport)

	rec.NetworkLocation = r.resolver.Resolve(identity.Address(r.cfg.UseHostname))

	if err := r.nodes.add(rec); err != nil {
		return RegisterResponse{}, err
	}
	r.topo.Add(id, rec.NetworkLocation)
	if !r.topo.Contains(id) {
		// A topology that doesn't retain what it was just told to Add is
		// a broken NetworkTopology implementation, not a runtime
		// condition callers can recover from.
		log.Fatal("topology invariant violated: Add did not register " + id.String())
		panic("registrar: topology.Add did not register " + id.String())
	}

	log.WithDatanodeID(id.String()).Info().Str("host", req.HostName).Msg("datanode registered")
	r.bridge.FireNewNode(id, req.HostName)

	return RegisterResponse{UUID: id, Layout: datanode.LayoutInfo{
		SoftwareLayoutVersion: rec.SoftwareLayoutVersion,
		MetadataLayoutVersion: rec.MetadataLayoutVersion,
	}}, nil
}

func (r *Registry) reregister(rec *datanode.Record, req RegisterRequest) (RegisterResponse, error) {
	oldHost, oldIP := rec.Identity.HostName, rec.Identity.IPAddress

	addressChanged := oldHost != req.HostName || oldIP != req.IPAddress
	rec.Identity.HostName = req.HostName
	rec.Identity.IPAddress = req.IPAddress
	rec.LastHeartbeatMillis = r.clock.NowMillis()

	if addressChanged {
		r.nodes.updateAddress(rec.Identity.UUID, oldHost, req.HostName, oldIP, req.IPAddress)
		applyNodeReport(rec, req.NodeReport)
		newAddr := rec.Identity.Address(r.cfg.UseHostname)
		rec.NetworkLocation = r.resolver.Resolve(newAddr)
		r.topo.Update(rec.Identity.UUID, rec.NetworkLocation)
		log.WithDatanodeID(rec.Identity.UUID.String()).Info().Str("host", req.HostName).Msg("datanode address changed")
		r.bridge.FireAddressUpdate(rec.Identity.UUID, req.HostName)
	}

	return RegisterResponse{UUID: rec.Identity.UUID, Layout: datanode.LayoutInfo{
		SoftwareLayoutVersion: rec.SoftwareLayoutVersion,
		MetadataLayoutVersion: rec.MetadataLayoutVersion,
	}}, nil
}
