package opstatestore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/scmregistry/core/pkg/adminapi"
	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/registry"
)

var bucketTransitions = []byte("op_state_transitions")

// Transition is one recorded operational-state change.
type Transition struct {
	DatanodeUUID   datanode.ID
	State          datanode.OperationalState
	ExpiryEpochSec int64
	RecordedAtUnix int64
}

// Store is a bbolt-backed append-only log of Transitions, keyed by an
// auto-incrementing sequence so History returns them in recorded order.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the op-state audit database under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "opstate.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opstatestore: open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTransitions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opstatestore: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Record appends a transition to the log.
func (s *Store) Record(t Transition) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransitions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// recordFromRegistry converts a registry.OpStateTransition into this
// package's own persisted shape before appending it.
func (s *Store) recordFromRegistry(t registry.OpStateTransition) error {
	return s.Record(Transition{
		DatanodeUUID:   t.DatanodeUUID,
		State:          t.State,
		ExpiryEpochSec: t.ExpiryEpochSec,
		RecordedAtUnix: t.RecordedAtUnix,
	})
}

// AsRecorder adapts Store to registry.OpStateRecorder, for wiring into
// registry.Collaborators.OpStateRecorder.
func (s *Store) AsRecorder() registry.OpStateRecorder { return recorderAdapter{s} }

type recorderAdapter struct{ s *Store }

func (a recorderAdapter) Record(t registry.OpStateTransition) error { return a.s.recordFromRegistry(t) }

// AsHistorySource adapts Store to adminapi.HistorySource, for wiring
// into adminapi.Mux.
func (s *Store) AsHistorySource() adminapi.HistorySource { return historySourceAdapter{s} }

type historySourceAdapter struct{ s *Store }

func (a historySourceAdapter) History(id datanode.ID) ([]adminapi.TransitionView, error) {
	transitions, err := a.s.History(id)
	if err != nil {
		return nil, err
	}
	views := make([]adminapi.TransitionView, len(transitions))
	for i, t := range transitions {
		views[i] = adminapi.TransitionView{
			State:          t.State,
			ExpiryEpochSec: t.ExpiryEpochSec,
			RecordedAtUnix: t.RecordedAtUnix,
		}
	}
	return views, nil
}

// History returns every recorded transition for a datanode, oldest first.
func (s *Store) History(id datanode.ID) ([]Transition, error) {
	var out []Transition
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransitions)
		return b.ForEach(func(_, v []byte) error {
			var t Transition
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if t.DatanodeUUID == id {
				out = append(out, t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("opstatestore: read history: %w", err)
	}
	return out, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
