package internal

// DerivationState is the four-state lattice a derivation's dependencies can
// be in relative to the observables it last read.
type DerivationState int

const (
	// NotTracking means the derivation has never run, or was untracked.
	NotTracking DerivationState = iota
	// UpToDate means all observed dependencies are confirmed unchanged.
	UpToDate
	// PossiblyStale means some dependency might have changed; confirm by
	// recomputation (for a computed value) before trusting the cache.
	PossiblyStale
	// Stale means a dependency is known to have changed; recompute on next read.
	Stale
)

func (s DerivationState) String() string {
	switch s {
	case NotTracking:
		return "NotTracking"
	case UpToDate:
		return "UpToDate"
	case PossiblyStale:
		return "PossiblyStale"
	case Stale:
		return "Stale"
	default:
		return "Unknown"
	}
}

// EnforceActions controls how strictly writes outside an action are policed.
type EnforceActions int

const (
	// EnforceNever allows writes anywhere.
	EnforceNever EnforceActions = iota
	// EnforceObserved requires an action only for observables that currently
	// have observers.
	EnforceObserved
	// EnforceAlways requires every write to happen inside an action.
	EnforceAlways
)

// TraceMode selects what `trace` does for a derivation.
type TraceMode int

const (
	TraceNone TraceMode = iota
	TraceLog
	TraceBreak
)
