package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/registry"
)

// NodeView is the JSON shape returned for one datanode: its UUID and
// hostName alongside its op-state, health and addresses. GET /api/nodes
// returns a list of these, not a map keyed by hostName.
type NodeView struct {
	UUID             datanode.ID             `json:"uuid"`
	HostName         string                  `json:"hostName"`
	IPAddress        string                  `json:"ipAddress"`
	OperationalState datanode.OperationalState `json:"operationalState"`
	Health           datanode.HealthState    `json:"health"`
	NetworkLocation  string                  `json:"networkLocation"`
}

// ClusterView is the JSON shape returned for cluster-wide stats.
type ClusterView struct {
	NodeCount    int   `json:"nodeCount"`
	HealthyCount int   `json:"healthyCount"`
	StaleCount   int   `json:"staleCount"`
	DeadCount    int   `json:"deadCount"`
	Capacity     int64 `json:"capacity"`
	Used         int64 `json:"used"`
	Remaining    int64 `json:"remaining"`
}

type setOpStateRequest struct {
	State          datanode.OperationalState `json:"state"`
	ExpiryEpochSec int64                     `json:"expiryEpochSec"`
}

// TransitionView is one audit-log entry returned by GET
// /api/nodes/{uuid}/history.
type TransitionView struct {
	State          datanode.OperationalState `json:"state"`
	ExpiryEpochSec int64                     `json:"expiryEpochSec"`
	RecordedAtUnix int64                     `json:"recordedAtUnix"`
}

// HistorySource is the read side of pkg/opstatestore, kept narrow so
// Mux doesn't have to import that package.
type HistorySource interface {
	History(id datanode.ID) ([]TransitionView, error)
}

// Mux builds the admin HTTP surface bound to reg: GET /api/nodes, GET
// /api/nodes/{uuid}, POST /api/nodes/{uuid}/opstate, GET /api/stats. A
// nil history source (the default) makes GET /api/nodes/{uuid}/history
// return 404 — no op-state store was wired into this scmd instance.
func Mux(reg *registry.Registry, history HistorySource) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", handleStats(reg))
	mux.HandleFunc("/api/nodes", handleNodesList(reg))
	mux.HandleFunc("/api/nodes/", handleNodeByID(reg, history))
	mux.HandleFunc("/api/nodes-by-address", handleNodesByAddress(reg))
	return mux
}

// handleNodesByAddress backs `cmd/scmd nodes find <addr>`: GET
// /api/nodes-by-address?addr=dn1 resolves a hostname or IP to every UUID
// currently indexed under it, per Registry.LookupByAddress.
func handleNodesByAddress(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := r.URL.Query().Get("addr")
		if addr == "" {
			http.Error(w, "missing addr query parameter", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, reg.LookupByAddress(addr))
	}
}

func handleStats(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stat := reg.ClusterStat()
		writeJSON(w, http.StatusOK, ClusterView{
			NodeCount:    stat.NodeCount,
			HealthyCount: stat.HealthyCount,
			StaleCount:   stat.StaleCount,
			DeadCount:    stat.DeadCount,
			Capacity:     stat.Usage.Capacity,
			Used:         stat.Usage.Used,
			Remaining:    stat.Usage.Remaining,
		})
	}
}

func handleNodesList(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs := reg.List("", "")
		views := make([]NodeView, len(recs))
		for i, rec := range recs {
			views[i] = toView(rec)
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func handleNodeByID(reg *registry.Registry, history HistorySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/nodes/")
		parts := strings.SplitN(rest, "/", 2)
		id := datanode.ID(parts[0])

		if len(parts) == 2 && parts[1] == "opstate" && r.Method == http.MethodPost {
			var req setOpStateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := reg.SetOperationalState(id, req.State, req.ExpiryEpochSec); err != nil {
				writeErr(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if len(parts) == 2 && parts[1] == "history" && r.Method == http.MethodGet {
			if history == nil {
				http.Error(w, "op-state history not enabled on this instance", http.StatusNotFound)
				return
			}
			transitions, err := history.History(id)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, transitions)
			return
		}

		rec, err := reg.Get(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toView(rec))
	}
}

func toView(rec *datanode.Record) NodeView {
	return NodeView{
		UUID:             rec.Identity.UUID,
		HostName:         rec.Identity.HostName,
		IPAddress:        rec.Identity.IPAddress,
		OperationalState: rec.PersistedOpState,
		Health:           rec.Health,
		NetworkLocation:  rec.NetworkLocation,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, registry.ErrNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
