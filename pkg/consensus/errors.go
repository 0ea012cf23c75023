package consensus

import "errors"

// ErrNotLeader is returned by operations that require leadership
// (AddVoter, RemoveServer, SetFinalizationCheckpoint) when called
// against a follower.
var ErrNotLeader = errors.New("consensus: not the leader")
