package internal

import "fmt"

// ComputedOptions configures a ComputedValue (spec.md §6 computed opts).
type ComputedOptions struct {
	Setter           func(any) error
	Equals           func(a, b any) bool
	KeepAlive        bool
	RequiresReaction bool
}

// ComputedValue is both an Observable (it has observers) and a Derivation
// (it has dependencies) — spec.md §3. Grounded on the teacher's
// internal/computed.go (NewComputed/run/Link), generalized from height
// tracking to the dependenciesState state machine and from deferred
// recompute-on-dispose to spec.md §4.5's lazy/memoized/suspend lifecycle.
type ComputedValue struct {
	*atomCore
	derivationCore

	getter func() any
	setter func(any) error
	equals func(a, b any) bool

	keepAlive        bool
	requiresReaction bool

	cachedValue any
	cachedErr   error

	isComputing     bool
	isRunningSetter bool
}

// NewComputedValue constructs a lazy, memoized derivation.
func NewComputedValue(s *SharedState, name string, getter func() any, opts ComputedOptions) *ComputedValue {
	equals := opts.Equals
	if equals == nil {
		equals = safeEqual
	}
	return &ComputedValue{
		atomCore:         newAtomCore(s, name),
		derivationCore:   newDerivationCore(s, name),
		getter:           getter,
		setter:           opts.Setter,
		equals:           equals,
		keepAlive:        opts.KeepAlive,
		requiresReaction: opts.RequiresReaction || s.config().ComputedRequiresReaction,
	}
}

// Name and graph are ambiguous between the embedded *atomCore and
// derivationCore (both carry identical values); resolve explicitly via
// atomCore to satisfy both the Observable and Derivation interfaces.
func (c *ComputedValue) Name() string        { return c.atomCore.Name() }
func (c *ComputedValue) graph() *SharedState { return c.atomCore.graph() }

// state resolves the selector clash between atomCore's state field and
// derivationCore's state method in favor of the derivation state.
func (c *ComputedValue) state() DerivationState { return c.derivationCore.state() }

// SetTrace/traceMode resolve against the Observable half: a computed's trace
// mode fires on every successful Value read (a ComputedRead event), the
// same way a box's fires on its writes.
func (c *ComputedValue) SetTrace(mode TraceMode) { c.atomCore.SetTrace(mode) }
func (c *ComputedValue) traceMode() TraceMode    { return c.atomCore.traceMode() }

// onBecomeStale implements the Derivation side of spec.md §4.4: a computed
// that became stale propagates maybe-changed to its own observers, since
// its value hasn't actually been recomputed (and confirmed changed) yet.
func (c *ComputedValue) onBecomeStale() {
	propagateMaybeChanged(c)
}

// Value implements spec.md §4.5 read semantics.
func (c *ComputedValue) Value() (any, error) {
	if c.isComputing {
		return nil, fmt.Errorf("%w: %q", ErrComputedCycle, c.Name())
	}

	s := c.graph()

	if !s.isBatching() && c.subs().isEmpty() && !c.keepAlive {
		if c.requiresReaction {
			return nil, fmt.Errorf("%w: %q requires an observer to be read", ErrReadOutsideReaction, c.Name())
		}
		s.startBatch()
		c.computeUntracked()
		_ = s.endBatch()
	} else {
		ReportObserved(c)
		c.ensureUpToDate()
	}

	if c.cachedErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrComputedReadFailed, c.cachedErr)
	}

	s.traceEmit(c.traceMode(), SpyEvent{Kind: SpyComputedRead, Name: c.Name(), NewValue: c.cachedValue})
	return c.cachedValue, nil
}

// SetValue implements spec.md §4.5 write semantics: run the configured
// setter as a named action; re-entrance fails with ComputedSetterCycle.
func (c *ComputedValue) SetValue(v any) error {
	if c.setter == nil {
		return fmt.Errorf("%w: %q has no setter", ErrComputedReadOnly, c.Name())
	}
	if c.isRunningSetter {
		return fmt.Errorf("%w: %q", ErrComputedSetterCycle, c.Name())
	}

	c.isRunningSetter = true
	defer func() { c.isRunningSetter = false }()

	return RunAction(c.graph(), c.Name()+".setter", func() error {
		return c.setter(v)
	})
}

// ensureUpToDate recomputes c (tracked) if shouldCompute says its cache
// cannot be trusted, confirming the change upward when the result differs.
func (c *ComputedValue) ensureUpToDate() {
	if shouldCompute(c) {
		if c.trackAndCompute() {
			propagateChangeConfirmed(c)
		}
	}
}

// trackAndCompute runs the getter inside trackDerivedFunction, comparing
// old and new results via the configured equality (spec.md §4.5).
func (c *ComputedValue) trackAndCompute() (changed bool) {
	s := c.graph()

	oldValue, oldErr := c.cachedValue, c.cachedErr
	wasNotTracking := c.state() == NotTracking

	c.isComputing = true
	s.computationDepth++

	var newValue any
	recovered := trackDerivedFunction(s, c, func() {
		newValue = c.getter()
	})

	s.computationDepth--
	c.isComputing = false

	var newErr error
	if recovered != nil {
		newErr = toError(recovered)
	}

	changed = wasNotTracking || oldErr != nil || newErr != nil
	if !changed {
		changed = !c.equals(oldValue, newValue)
	}

	c.cachedValue = newValue
	c.cachedErr = newErr
	return changed
}

// computeUntracked runs the getter with no tracking derivation at all: used
// for the untracked, no-observer, no-keep-alive one-off read path. The
// result is stored in the cache only for the current read: the computed
// stays NotTracking, so the next read recomputes it (spec.md §4.5 "start a
// one-off batch, recompute without tracking").
func (c *ComputedValue) computeUntracked() {
	s := c.graph()
	prevTracking := s.StartTracking(nil)

	c.isComputing = true
	var newValue any
	var newErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				newErr = toError(r)
			}
		}()
		newValue = c.getter()
	}()
	c.isComputing = false

	s.EndTracking(prevTracking)

	c.cachedValue = newValue
	c.cachedErr = newErr
}

// suspend implements spec.md §4.5: when the last observer leaves and this
// computed is not kept alive, clear its dependencies and cache.
func (c *ComputedValue) suspend() {
	if c.keepAlive {
		return
	}
	c.clearObserving()
	c.cachedValue = nil
	c.cachedErr = nil
	c.setState(NotTracking)
}

func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func toError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
