package reactor

import "github.com/reactorhq/reactor/internal"

// SpyKind tags one structured event on a graph's spy stream (spec.md §6).
type SpyKind = internal.SpyKind

const (
	SpyActionStart                    = internal.SpyActionStart
	SpyActionEnd                      = internal.SpyActionEnd
	SpyReactionStart                  = internal.SpyReactionStart
	SpyReactionEnd                    = internal.SpyReactionEnd
	SpyReactionScheduled              = internal.SpyReactionScheduled
	SpyReactionException              = internal.SpyReactionException
	SpyComputedRead                   = internal.SpyComputedRead
	SpyObservableValueChanged         = internal.SpyObservableValueChanged
	SpyObservedNothingWarning         = internal.SpyObservedNothingWarning
	SpyUntrackedObservableReadWarning = internal.SpyUntrackedObservableReadWarning
)

// SpyEvent is one record delivered to a Config.Spy callback.
type SpyEvent struct {
	Kind     SpyKind
	Name     string
	OldValue any
	NewValue any
	Err      error
}

func fromSpyEvent(e internal.SpyEvent) SpyEvent {
	return SpyEvent{Kind: e.Kind, Name: e.Name, OldValue: e.OldValue, NewValue: e.NewValue, Err: e.Err}
}

// TraceMode selects what Trace does for a node.
type TraceMode = internal.TraceMode

const (
	TraceNone  = internal.TraceNone
	TraceLog   = internal.TraceLog
	TraceBreak = internal.TraceBreak
)

// BreakHook is invoked in place of a debugger breakpoint when a node traced
// with TraceBreak is written (a Box), read (a Computed), or starts or ends a
// run (a Reaction) (spec.md §6 "trace" — Go has no
// portable in-process debugger-break primitive, so TraceBreak is a
// configurable hook instead of an actual break).
type BreakHook func(SpyEvent)
