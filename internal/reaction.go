package internal

import "time"

// Reaction is a Derivation with no Observable half: it runs tracked code
// for effect, not for a cached value. Grounded on the teacher's
// internal/effect.go (Effect.run/schedule/dispose), generalized from the
// height-based scheduler to spec.md §4.6's onInvalidate/Track/Schedule/
// Dispose lifecycle (REDESIGN FLAG 1 in SPEC_FULL.md).
type Reaction struct {
	derivationCore

	onInvalidate func()
	errorHandler func(error)

	// delay/scheduler decorate onInvalidate per spec.md §6
	// "SharedState.autorun(effect, opts?)" delay/scheduler options: when
	// either is set, becoming stale dispatches Track through that hook
	// instead of the graph's synchronous FIFO pendingReactions queue.
	delay     time.Duration
	scheduler func(func())

	isScheduled bool
	isDisposed  bool
	isRunning   bool

	// trackPending records that Dispose was called while Track was
	// mid-run; cleanup happens once Track returns instead of immediately.
	trackPending bool
}

// NewReaction constructs a reaction; it does nothing until Track is first
// called (spec.md §4.6 "a reaction starts NotTracking").
func NewReaction(s *SharedState, name string, onInvalidate func(), errorHandler func(error)) *Reaction {
	return &Reaction{
		derivationCore: newDerivationCore(s, name),
		onInvalidate:   onInvalidate,
		errorHandler:   errorHandler,
	}
}

// ConfigureSchedule installs a delay and/or a custom scheduler hook
// (spec.md §6, §"Reaction scheduling model"). Call before the reaction's
// first Track.
func (r *Reaction) ConfigureSchedule(delay time.Duration, scheduler func(func())) {
	r.delay = delay
	r.scheduler = scheduler
}

// onBecomeStale implements the Derivation side of spec.md §4.4: a reaction
// that becomes stale schedules itself for the next flush instead of
// propagating further (it has no observers of its own).
func (r *Reaction) onBecomeStale() {
	r.Schedule()
}

// Schedule arms r for its next run. With no delay/scheduler decoration it
// enqueues onto the graph's pending-reactions FIFO, drained synchronously
// at the outermost endBatch (spec.md §4.1). With a delay and/or scheduler,
// the actual Track is deferred to that hook instead, per spec.md's
// "Reaction scheduling model" — exceptions raised by the scheduler hook
// itself are funneled through the same reaction-exception path as a
// failing Track.
func (r *Reaction) Schedule() {
	if r.isDisposed || r.isScheduled {
		return
	}
	r.isScheduled = true

	if r.delay <= 0 && r.scheduler == nil {
		r.graph().scheduleReaction(r)
		return
	}

	s := r.graph()
	s.emitSpy(SpyEvent{Kind: SpyReactionScheduled, Name: r.Name()})

	dispatch := func() {
		r.isScheduled = false
		if r.isDisposed {
			return
		}
		r.Track()
	}

	rethrown := false
	run := func() {
		defer func() {
			if rec := recover(); rec != nil {
				rethrown = true
				r.reportException(toError(rec))
			}
		}()
		dispatch()
	}

	defer func() {
		if rec := recover(); rec != nil {
			if rethrown {
				panic(rec)
			}
			r.reportException(toError(rec))
		}
	}()

	switch {
	case r.scheduler != nil:
		r.scheduler(run)
	case s.config().Scheduler != nil:
		s.config().Scheduler(run)
	default:
		time.AfterFunc(r.delay, run)
	}
}

// runIfScheduled is called by SharedState.runReactions while draining the
// FIFO queue; a reaction disposed or already re-run since being queued is
// skipped.
func (r *Reaction) runIfScheduled() {
	if !r.isScheduled || r.isDisposed {
		r.isScheduled = false
		return
	}
	r.isScheduled = false
	r.Track()
}

// Track runs the reaction's invalidation callback inside a tracked
// derivation run, inside its own micro-batch, routing any panic through
// reportException once the batch has closed (spec.md §4.6, §7 error
// boundaries). Track is also how a reaction is first armed: the
// very first call always runs, since a fresh reaction's state is
// NotTracking.
func (r *Reaction) Track() {
	if r.isDisposed {
		return
	}

	s := r.graph()
	s.startBatch()
	r.isRunning = true

	s.traceEmit(r.traceMode(), SpyEvent{Kind: SpyReactionStart, Name: r.Name()})
	recovered := trackDerivedFunction(s, r, func() {
		r.onInvalidate()
	})
	s.traceEmit(r.traceMode(), SpyEvent{Kind: SpyReactionEnd, Name: r.Name()})

	r.isRunning = false
	_ = s.endBatch()

	if recovered != nil {
		r.reportException(toError(recovered))
	}

	if r.trackPending {
		r.trackPending = false
		r.disposeNow()
	}
}

// reportException implements spec.md §"ERROR HANDLING DESIGN": a
// per-reaction errorHandler always takes priority; otherwise, with error
// boundaries enabled (the default), the exception is logged via the spy
// channel and announced through OnUnhandledReactionError, and is then
// re-panicked unless SuppressReactionErrors is set; with it set, the
// reaction stays alive for its next scheduled run. With
// disableErrorBoundaries set, no handler runs: the exception is re-panicked
// straight away.
func (r *Reaction) reportException(err error) {
	cfg := r.graph().config()
	r.graph().emitSpy(SpyEvent{Kind: SpyReactionException, Name: r.Name(), Err: err})

	if r.errorHandler != nil {
		r.errorHandler(err)
		return
	}

	if cfg.DisableErrorBoundaries {
		panic(err)
	}

	if cfg.OnUnhandledReactionError != nil {
		cfg.OnUnhandledReactionError(r, err)
	}
	if !cfg.SuppressReactionErrors {
		panic(err)
	}
}

// Dispose marks the reaction disposed so no further Track/Schedule has
// effect, and unsubscribes it from every dependency. Disposing from inside
// the reaction's own Track (e.g. an effect disposing itself) flips
// isDisposed immediately but defers the unlink work until Track returns,
// mirroring spec.md §4.6's "mark disposed and defer cleanup" rule — a
// caller observing IsDisposed() from within that same Track (e.g. when's
// callback) must see it true right away.
func (r *Reaction) Dispose() {
	if r.isDisposed {
		return
	}
	r.isDisposed = true
	if r.isRunning {
		r.trackPending = true
		return
	}
	r.disposeNow()
}

// disposeNow performs the actual unlink work, wrapped in its own
// micro-batch (spec.md §4.6: "open a micro-batch, clear observing, close
// it") so any dependency that loses its last observer here has its
// pendingUnobservation processed — and any ComputedValue.suspend() cascade
// triggered — by this disposal's own endBatch instead of waiting on some
// unrelated future batch.
func (r *Reaction) disposeNow() {
	s := r.graph()
	s.startBatch()
	r.isScheduled = false
	r.clearObserving()
	r.setState(NotTracking)
	_ = s.endBatch()
}

// IsDisposed reports whether Dispose has taken effect.
func (r *Reaction) IsDisposed() bool { return r.isDisposed }
