package internal

import "errors"

// Sentinel errors for the ten failure kinds spec'd for the engine. Each is
// wrapped with fmt.Errorf("%w: ...") at the call site so errors.Is still
// matches the sentinel while the message carries node-specific context.
var (
	ErrComputedCycle       = errors.New("computed cycle: read itself during its own computation")
	ErrComputedSetterCycle = errors.New("computed setter cycle: setter assigned through itself")
	ErrComputedReadOnly    = errors.New("computed read-only: no setter configured")
	ErrComputedReadFailed  = errors.New("computed read failed: last evaluation raised an error")
	ErrWriteOutsideAction  = errors.New("write outside action")
	ErrReadOutsideReaction = errors.New("read outside reaction")
	ErrReactionCycle       = errors.New("reaction cycle: exceeded max reaction iterations")
	ErrActionNestingError  = errors.New("action nesting error: mismatched start/end action")
	ErrTimeout             = errors.New("timeout")
	ErrSharedStateMismatch = errors.New("shared state mismatch: node belongs to a different graph")
)
