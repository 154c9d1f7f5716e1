// Package reactor implements a transparent, dependency-tracking reactive
// graph: boxes hold state, computeds derive memoized values from other
// boxes and computeds, and reactions re-run side effects whenever their
// tracked dependencies change. Grounded on the teacher's root sig package,
// generalized from its Signal/Computed/Effect trio to the full
// Atom/ObservableValue/ComputedValue/Reaction engine in internal/.
package reactor

import (
	"sync"

	"github.com/reactorhq/reactor/internal"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// Config mirrors internal.Config at the public boundary (spec.md §6).
type Config struct {
	EnforceActions             EnforceActions
	ComputedRequiresReaction   bool
	ObservableRequiresReaction bool
	ReactionRequiresObservable bool
	DisableErrorBoundaries     bool
	SuppressReactionErrors     bool
	MaxReactionIterations      int
	Scheduler                  func(func())
	OnUnhandledReactionError   func(*Reaction, error)
	Spy                        func(SpyEvent)

	// BreakHook is invoked instead of a debugger breakpoint for any node
	// traced with TraceBreak (spec.md §6 "trace"; see Box.Trace/Computed.Trace/
	// Reaction.Trace). Defaults to a no-op.
	BreakHook func(SpyEvent)
}

// EnforceActions controls how strictly writes outside an action are
// policed (spec.md §4.2, §6).
type EnforceActions = internal.EnforceActions

const (
	EnforceNever    = internal.EnforceNever
	EnforceObserved = internal.EnforceObserved
	EnforceAlways   = internal.EnforceAlways
)

// SharedState is one independent reactive graph. Most programs use the
// ambient Default() instance; construct one explicitly to run more than
// one isolated graph in the same process (spec.md §5).
type SharedState struct {
	s   *internal.SharedState
	cfg Config

	mu        sync.Mutex
	reactions map[*internal.Reaction]*Reaction
}

// New constructs an independent reactive graph with the given config.
func New(cfg Config) *SharedState {
	pub := &SharedState{cfg: cfg, reactions: map[*internal.Reaction]*Reaction{}}

	icfg := internal.Config{
		EnforceActions:             cfg.EnforceActions,
		ComputedRequiresReaction:   cfg.ComputedRequiresReaction,
		ObservableRequiresReaction: cfg.ObservableRequiresReaction,
		ReactionRequiresObservable: cfg.ReactionRequiresObservable,
		DisableErrorBoundaries:     cfg.DisableErrorBoundaries,
		SuppressReactionErrors:     cfg.SuppressReactionErrors,
		MaxReactionIterations:      cfg.MaxReactionIterations,
		Scheduler:                  cfg.Scheduler,
	}
	if cfg.Spy != nil {
		icfg.Spy = func(e internal.SpyEvent) { cfg.Spy(fromSpyEvent(e)) }
	}
	if cfg.BreakHook != nil {
		icfg.BreakHook = func(e internal.SpyEvent) { cfg.BreakHook(fromSpyEvent(e)) }
	}
	if cfg.OnUnhandledReactionError != nil {
		icfg.OnUnhandledReactionError = func(r *internal.Reaction, err error) {
			cfg.OnUnhandledReactionError(pub.lookupReaction(r), err)
		}
	}

	pub.s = internal.NewSharedState(icfg)
	return pub
}

func (s *SharedState) registerReaction(ir *internal.Reaction, pr *Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactions[ir] = pr
}

func (s *SharedState) lookupReaction(ir *internal.Reaction) *Reaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reactions[ir]
}

var (
	defaultOnce  sync.Once
	defaultState *SharedState
)

// Default returns the process-wide ambient graph, lazily constructed on
// first use with zero-value Config (spec.md §5 "most programs need only
// one graph").
func Default() *SharedState {
	defaultOnce.Do(func() {
		defaultState = New(Config{})
	})
	return defaultState
}

// RunInAction runs fn as a single named action against the default graph
// (spec.md §4.2, §6).
func RunInAction(name string, fn func()) {
	Default().RunInAction(name, fn)
}

// RunInAction runs fn as a single named action against this graph.
func (s *SharedState) RunInAction(name string, fn func()) {
	_ = internal.RunActionVoid(s.s, name, fn)
}

// Action wraps fn so every call runs as one named action (spec.md §6).
func Action(name string, fn func()) func() {
	return Default().Action(name, fn)
}

// Action wraps fn so every call against this graph runs as one named action.
func (s *SharedState) Action(name string, fn func()) func() {
	return func() { s.RunInAction(name, fn) }
}
