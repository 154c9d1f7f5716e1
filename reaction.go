package reactor

import (
	"time"

	"github.com/reactorhq/reactor/internal"
)

// Reaction is a disposable, effect-only derivation (spec.md §3 Reaction,
// §4.6). It is produced either by Autorun (track everything the function
// reads) or by NewReaction (track only an expression, run an untracked
// effect when the expression's result changes).
type Reaction struct {
	r *internal.Reaction
}

// ReactionOptions configures an autorun/reaction at construction
// (spec.md §6).
type ReactionOptions struct {
	Name         string
	ErrorHandler func(error)

	// Delay debounces recomputation: onInvalidate fires at most once per
	// Delay window instead of synchronously within the triggering batch.
	Delay time.Duration
	// Scheduler, if set, receives a "run this now" callback instead of the
	// reaction running synchronously at batch end (spec.md §6, §"Reaction
	// scheduling model"). Takes priority over Delay's default timer.
	Scheduler func(func())

	// RequiresObservable warns (via the spy channel's ObservedNothingWarning
	// event) if this reaction ever completes a run having tracked no
	// dependency at all — almost always a sign it will never re-run
	// (spec.md §4.3 invariant 5, §6 autorun/when opts).
	RequiresObservable bool
}

// ExpressionOptions configures NewReaction's expression/effect split
// (spec.md §6 "reaction" opts: additionally fireImmediately and
// equalityComparer, which only make sense once there is a typed expression
// result to gate on — Autorun and When have no such result).
type ExpressionOptions[T any] struct {
	ReactionOptions

	// FireImmediately controls whether effect runs on the very first Track.
	// Default false: the first run only establishes the baseline expression
	// value, matching spec.md §8 S3 (appending a todo produces exactly one
	// count entry, not one for construction and one for the append). Has no
	// effect on Autorun, which always runs immediately by definition.
	FireImmediately bool

	// Equals decides whether effect fires on a later run: when it reports
	// the new expression result equal to the previous one, effect is
	// skipped even though the reaction itself still ran (spec.md §6
	// "equalityComparer"). Defaults to a recover-guarded ==, matching
	// Box/Computed's own default (SPEC_FULL.md [SUPPLEMENTED FEATURES]); use
	// StructuralEqual for slice/map/struct results.
	Equals func(a, b T) bool
}

// Autorun runs fn immediately and again every time a tracked dependency it
// read changes, against the default graph (spec.md §4.6).
func Autorun(fn func(), opts ...ReactionOptions) *Reaction {
	return AutorunOn(Default(), fn, opts...)
}

// AutorunOn runs fn against an explicit graph.
func AutorunOn(s *SharedState, fn func(), opts ...ReactionOptions) *Reaction {
	var opt ReactionOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	name := opt.Name
	if name == "" {
		name = "autorun"
	}

	pub := &Reaction{}
	ir := internal.NewReaction(s.s, name, fn, opt.ErrorHandler)
	ir.ConfigureSchedule(opt.Delay, opt.Scheduler)
	ir.SetRequiresObservable(opt.RequiresObservable || s.cfg.ReactionRequiresObservable)
	pub.r = ir
	s.registerReaction(ir, pub)

	ir.Track()
	return pub
}

// Autorun is the (*SharedState) form of AutorunOn.
func (s *SharedState) Autorun(fn func(), opts ...ReactionOptions) *Reaction {
	return AutorunOn(s, fn, opts...)
}

// Dispose stops the reaction from ever running again and releases its
// dependency links (spec.md §4.6).
func (r *Reaction) Dispose() {
	r.r.Dispose()
}

// IsDisposed reports whether Dispose has taken effect.
func (r *Reaction) IsDisposed() bool {
	return r.r.IsDisposed()
}

// Name returns the reaction's diagnostic name.
func (r *Reaction) Name() string {
	return r.r.Name()
}

// Trace arms this reaction's trace mode (spec.md §6 "trace"): TraceLog
// prints one line to standard output at the start and one at the end of
// every run; TraceBreak hands those events to the graph's configured
// BreakHook instead.
func (r *Reaction) Trace(mode TraceMode) {
	r.r.SetTrace(mode)
}

// NewReaction tracks expression and, whenever its result changes, runs
// effect untracked with the new and previous values (spec.md §4.6's
// expression/effect split, also exposed as reactor.Reaction in the
// component table). The first run never fires effect unless
// ExpressionOptions.FireImmediately is set; it only establishes the
// baseline expression value.
func NewReaction[T any](expression func() T, effect func(value, previous T), opts ...ExpressionOptions[T]) *Reaction {
	return NewReactionOn[T](Default(), expression, effect, opts...)
}

// NewReactionOn is NewReaction against an explicit graph.
func NewReactionOn[T any](s *SharedState, expression func() T, effect func(value, previous T), opts ...ExpressionOptions[T]) *Reaction {
	var opt ExpressionOptions[T]
	if len(opts) > 0 {
		opt = opts[0]
	}
	name := opt.Name
	if name == "" {
		name = "reaction"
	}
	equals := opt.Equals
	if equals == nil {
		equals = defaultEquals[T]
	}

	var previous T
	first := true

	pub := &Reaction{}
	var ir *internal.Reaction
	ir = internal.NewReaction(s.s, name, func() {
		current := expression()
		if first {
			first = false
			previous = current
			if opt.FireImmediately {
				runUntracked(s, func() { effect(current, previous) })
			}
			return
		}
		prior := previous
		previous = current
		if equals(prior, current) {
			return
		}
		runUntracked(s, func() { effect(current, prior) })
	}, opt.ErrorHandler)
	ir.ConfigureSchedule(opt.Delay, opt.Scheduler)
	ir.SetRequiresObservable(opt.RequiresObservable || s.cfg.ReactionRequiresObservable)
	pub.r = ir
	s.registerReaction(ir, pub)

	ir.Track()
	return pub
}

// defaultEquals mirrors the internal package's recover-guarded == fallback
// (internal/computed.go's safeEqual) at the public generic boundary, since
// an unconstrained T may not satisfy Go's comparable constraint.
func defaultEquals[T any](a, b T) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return any(a) == any(b)
}

// runUntracked suspends dependency tracking for the duration of fn, used so
// a reaction's effect body never accidentally subscribes the reaction to
// state it merely reads for side effect (spec.md §4.6: only expression is
// tracked).
func runUntracked(s *SharedState, fn func()) {
	prev := s.s.StartTracking(nil)
	defer s.s.EndTracking(prev)
	fn()
}
