package reactor

import "github.com/reactorhq/reactor/internal"

// Sentinel errors returned (wrapped with additional context) by the public
// API. internal/ cannot be imported outside this module, so every error a
// caller might want to match with errors.Is needs an alias here.
var (
	ErrComputedCycle       = internal.ErrComputedCycle
	ErrComputedSetterCycle = internal.ErrComputedSetterCycle
	ErrComputedReadOnly    = internal.ErrComputedReadOnly
	ErrComputedReadFailed  = internal.ErrComputedReadFailed
	ErrWriteOutsideAction  = internal.ErrWriteOutsideAction
	ErrReadOutsideReaction = internal.ErrReadOutsideReaction
	ErrReactionCycle       = internal.ErrReactionCycle
	ErrActionNestingError  = internal.ErrActionNestingError
	ErrTimeout             = internal.ErrTimeout
	ErrSharedStateMismatch = internal.ErrSharedStateMismatch
)
