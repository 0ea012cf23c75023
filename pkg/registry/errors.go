package registry

import "errors"

// Sentinel errors returned by registry operations, per spec.md §7. Callers
// should compare with errors.Is rather than switching on error strings.
var (
	// ErrNotFound means the identity isn't in the registry. Expected in
	// normal operation (e.g. an unregistered datanode's heartbeat); never
	// propagated as fatal.
	ErrNotFound = errors.New("registry: datanode not found")

	// ErrAlreadyExists means a duplicate registration was attempted
	// against NodeTable.Add. Treated as benign idempotence by callers
	// that expect re-registration to go through Update instead.
	ErrAlreadyExists = errors.New("registry: datanode already exists")

	// ErrLayoutMismatch is returned by Register when the datanode's
	// software layout version is newer than the SCM's. An older software
	// layout version is accepted, not rejected.
	ErrLayoutMismatch = errors.New("registry: datanode layout version not permitted")

	// ErrPipelineNotFound is surfaced by PipelineManager lookups; peer-list
	// computation in StatsView ignores it rather than failing.
	ErrPipelineNotFound = errors.New("registry: pipeline not found")
)
