package internal

import "fmt"

// Config bundles the engine-tuning knobs spec.md §6 exposes on
// SharedState.new(config). A plain struct, matching the teacher's
// no-config constructors (NewRuntime, NewHeap, ...) — this port only adds a
// struct because spec.md requires the knobs to exist somewhere.
type Config struct {
	EnforceActions             EnforceActions
	ComputedRequiresReaction   bool
	ObservableRequiresReaction bool
	ReactionRequiresObservable bool
	DisableErrorBoundaries     bool
	SuppressReactionErrors     bool
	MaxReactionIterations      int
	Scheduler                  func(fn func())
	OnUnhandledReactionError   func(r *Reaction, err error)
	Spy                        func(SpyEvent)

	// BreakHook stands in for spec.md §6's "trace(node, 'break')": Go has no
	// portable in-process debugger-break primitive, so a node traced with
	// TraceBreak invokes this hook instead. Defaults to a no-op.
	BreakHook func(SpyEvent)
}

func (c Config) withDefaults() Config {
	if c.MaxReactionIterations <= 0 {
		c.MaxReactionIterations = 100
	}
	return c
}

// SharedState is the process-local registry of one reactive graph: the
// batch counter, the currently tracking derivation, strict-mode flags, the
// run-id counter, and the FIFO queues drained at the outermost batch
// boundary. Grounded on internal/batcher.go (batch depth + onComplete),
// internal/context.go (tracking-derivation scoping), and internal/queue.go
// (FIFO queue shape) from the teacher.
type SharedState struct {
	cfg Config

	batchCount int

	trackingDerivation Derivation

	allowStateReads   bool
	allowStateChanges bool

	runIDSeq int64

	computationDepth int
	actionDepth      int

	pendingReactions       []*Reaction
	runningReactions       bool
	pendingUnobservations  []Observable
	processingUnobserveRun bool

	owningGID int64 // used only under the reactor_strict build tag
}

// NewSharedState constructs an independent reactive graph. Multiple
// instances are supported (spec.md §5); a node created against one
// SharedState must never be read from a derivation tracked by another (see
// ErrSharedStateMismatch).
func NewSharedState(cfg Config) *SharedState {
	cfg = cfg.withDefaults()
	return &SharedState{
		cfg:               cfg,
		allowStateReads:   true,
		allowStateChanges: cfg.EnforceActions == EnforceNever,
	}
}

func (s *SharedState) config() Config { return s.cfg }

// startBatch/endBatch are reentrant; endBatch is a no-op unless it takes the
// counter to zero (spec.md §4.1).
func (s *SharedState) startBatch() {
	assertSingleThreaded(s)
	s.batchCount++
}

func (s *SharedState) endBatch() error {
	assertSingleThreaded(s)
	s.batchCount--
	if s.batchCount < 0 {
		s.batchCount = 0
	}
	if s.batchCount == 0 {
		if err := s.runReactions(); err != nil {
			s.processPendingUnobservations()
			return err
		}
		s.processPendingUnobservations()
	}
	return nil
}

func (s *SharedState) isBatching() bool { return s.batchCount > 0 }

// StartTracking / EndTracking save and restore the currently tracking
// derivation, grounded on internal/context.go's RunWithNode.
func (s *SharedState) StartTracking(d Derivation) Derivation {
	prev := s.trackingDerivation
	s.trackingDerivation = d
	return prev
}

func (s *SharedState) EndTracking(prev Derivation) {
	s.trackingDerivation = prev
}

func (s *SharedState) startAllowStateReads(allow bool) bool {
	prev := s.allowStateReads
	s.allowStateReads = allow
	return prev
}

func (s *SharedState) endAllowStateReads(prev bool) {
	s.allowStateReads = prev
}

func (s *SharedState) startAllowStateChanges(allow bool) bool {
	prev := s.allowStateChanges
	s.allowStateChanges = allow
	return prev
}

func (s *SharedState) endAllowStateChanges(prev bool) {
	s.allowStateChanges = prev
}

// incrementRunID returns the next run identifier, used to tag derivation
// runs and de-duplicate reads within one run (spec.md §4.1).
func (s *SharedState) incrementRunID() int64 {
	s.runIDSeq++
	return s.runIDSeq
}

func (s *SharedState) queuePendingUnobservation(o Observable) {
	if o.pendingUnobservation() {
		return
	}
	o.setPendingUnobservation(true)
	s.pendingUnobservations = append(s.pendingUnobservations, o)
}

// processPendingUnobservations drains the queue: for each still-unobserved
// node, fire onBecomeUnobserved and, if it is a computed value, suspend it
// (spec.md §4.1, §4.5).
func (s *SharedState) processPendingUnobservations() {
	if s.processingUnobserveRun {
		return
	}
	s.processingUnobserveRun = true
	defer func() { s.processingUnobserveRun = false }()

	for len(s.pendingUnobservations) > 0 {
		queue := s.pendingUnobservations
		s.pendingUnobservations = nil

		for _, o := range queue {
			o.setPendingUnobservation(false)
			if !o.subs().isEmpty() {
				continue
			}
			o.setBeingObserved(false)
			o.fireOnBecomeUnobserved()
			if c, ok := o.(*ComputedValue); ok {
				c.suspend()
			}
		}
	}
}

// runReactions drains pendingReactions in FIFO insertion order. Reactions
// invoked during the drain may append more entries; iterate until empty or
// maxReactionIterations total invocations are exceeded (spec.md §4.1
// invariant 6, §8 "flush bounding").
func (s *SharedState) runReactions() error {
	if s.runningReactions {
		return nil
	}
	s.runningReactions = true
	defer func() { s.runningReactions = false }()

	invocations := 0
	for len(s.pendingReactions) > 0 {
		batch := s.pendingReactions
		s.pendingReactions = nil

		for _, r := range batch {
			invocations++
			if invocations > s.cfg.MaxReactionIterations {
				s.pendingReactions = nil
				return fmt.Errorf("%w: exceeded %d reactions in a single flush", ErrReactionCycle, s.cfg.MaxReactionIterations)
			}
			r.runIfScheduled()
		}
	}
	return nil
}

// scheduleReaction enqueues r and, outside any batch, immediately drains the
// queue (spec.md §4.6 Reaction.schedule()).
func (s *SharedState) scheduleReaction(r *Reaction) {
	s.pendingReactions = append(s.pendingReactions, r)
	s.emitSpy(SpyEvent{Kind: SpyReactionScheduled, Name: r.Name()})
	if !s.isBatching() {
		if err := s.runReactions(); err != nil {
			panic(err)
		}
		s.processPendingUnobservations()
	}
}

// checkIfStateModificationsAreAllowed implements spec.md §4.2: a write must
// first pass the computed-purity rule (never mutate observed state from
// inside a running computed getter), then the configured strict-mode policy.
func (s *SharedState) checkIfStateModificationsAreAllowed(o Observable) error {
	if s.computationDepth > 0 && !o.subs().isEmpty() {
		return fmt.Errorf("%w: computed values must be pure; attempted write to observed %q from inside a computation", ErrWriteOutsideAction, o.Name())
	}

	switch s.cfg.EnforceActions {
	case EnforceAlways:
		if !s.allowStateChanges {
			return fmt.Errorf("%w: %q was modified outside an action while enforceActions=Always", ErrWriteOutsideAction, o.Name())
		}
	case EnforceObserved:
		if !o.subs().isEmpty() && !s.allowStateChanges {
			return fmt.Errorf("%w: observed %q was modified outside an action while enforceActions=Observed", ErrWriteOutsideAction, o.Name())
		}
	}

	return nil
}

func (s *SharedState) emitSpy(e SpyEvent) {
	if s.cfg.Spy != nil {
		s.cfg.Spy(e)
	}
}

// traceEmit always fans e out to the spy channel, then additionally honors a
// traced node's own mode (spec.md §6 "trace"): Log prints a one-line record
// of e, Break hands e to the configured BreakHook instead of the (nonexistent
// in Go) debugger breakpoint.
func (s *SharedState) traceEmit(mode TraceMode, e SpyEvent) {
	s.emitSpy(e)
	switch mode {
	case TraceLog:
		fmt.Printf("[trace] %s %s\n", e.Kind, e.Name)
	case TraceBreak:
		if s.cfg.BreakHook != nil {
			s.cfg.BreakHook(e)
		}
	}
}
