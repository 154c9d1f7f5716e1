package internal

import "fmt"

// Observable is the capability trait for nodes that can be read and
// reported on: Atom, ObservableValue, and ComputedValue all implement it by
// embedding *atomCore. Grounded on the teacher's Signal (internal/signal.go)
// and on sig/sig.go's Observable interface (track/untrack), generalized to
// the spec's observers/lowestObserverState/lastAccessedBy bookkeeping.
type Observable interface {
	Name() string
	graph() *SharedState
	subs() *linkSet
	lowestState() DerivationState
	setLowestState(DerivationState)
	beingObserved() bool
	setBeingObserved(bool)
	pendingUnobservation() bool
	setPendingUnobservation(bool)
	lastAccessedBy() int64
	setLastAccessedBy(int64)
	fireOnBecomeObserved()
	fireOnBecomeUnobserved()
}

// atomCore is the shared observable state embedded by Atom, ObservableValue,
// and ComputedValue. An Atom on its own is "an opaque observable with no
// stored value" per spec.md §3.
type atomCore struct {
	name  string
	state *SharedState

	observers linkSet

	lowestObserverState DerivationState

	isBeingObserved        bool
	isPendingUnobservation bool

	// lastAccessedBy is the run-id of the tracking derivation that most
	// recently read this node, used to de-duplicate reads within one run.
	lastRunID int64

	onBecomeObservedHooks   []func()
	onBecomeUnobservedHooks []func()

	tracing TraceMode
}

// Atom is a minimal observable with no stored value: a bare dependency-graph
// node collaborators (e.g. out-of-scope observable containers) can call
// ReportObserved/ReportChanged on.
type Atom struct {
	*atomCore
}

// NewAtom constructs a bare Atom registered against the given graph.
func NewAtom(s *SharedState, name string) *Atom {
	return &Atom{newAtomCore(s, name)}
}

func newAtomCore(s *SharedState, name string) *atomCore {
	return &atomCore{
		name:                name,
		state:               s,
		lowestObserverState: UpToDate,
	}
}

func (a *atomCore) Name() string                         { return a.name }
func (a *atomCore) graph() *SharedState                   { return a.state }
func (a *atomCore) subs() *linkSet                        { return &a.observers }
func (a *atomCore) lowestState() DerivationState          { return a.lowestObserverState }
func (a *atomCore) setLowestState(s DerivationState)      { a.lowestObserverState = s }
func (a *atomCore) beingObserved() bool                   { return a.isBeingObserved }
func (a *atomCore) setBeingObserved(v bool)               { a.isBeingObserved = v }
func (a *atomCore) pendingUnobservation() bool            { return a.isPendingUnobservation }
func (a *atomCore) setPendingUnobservation(v bool)        { a.isPendingUnobservation = v }
func (a *atomCore) lastAccessedBy() int64                 { return a.lastRunID }
func (a *atomCore) setLastAccessedBy(runID int64)         { a.lastRunID = runID }

func (a *atomCore) fireOnBecomeObserved() {
	for _, hook := range a.onBecomeObservedHooks {
		hook()
	}
}

func (a *atomCore) fireOnBecomeUnobserved() {
	for _, hook := range a.onBecomeUnobservedHooks {
		hook()
	}
}

// SetTrace arms spec.md §6's per-node trace mode (None/Log/Break).
func (a *atomCore) SetTrace(mode TraceMode) { a.tracing = mode }

func (a *atomCore) traceMode() TraceMode { return a.tracing }

// OnBecomeObserved registers a hook fired the first time this node gains an
// observer.
func (a *atomCore) OnBecomeObserved(fn func()) {
	a.onBecomeObservedHooks = append(a.onBecomeObservedHooks, fn)
}

// OnBecomeUnobserved registers a hook fired when this node's last observer
// leaves (after the owning batch ends, per spec.md §3 invariant 5).
func (a *atomCore) OnBecomeUnobserved(fn func()) {
	a.onBecomeUnobservedHooks = append(a.onBecomeUnobservedHooks, fn)
}

// ReportObserved implements spec.md §4.2: if a derivation is currently being
// tracked and hasn't already recorded this node in the current run, add it
// to newObserving and mark lastAccessedBy. If no derivation is tracking but
// the engine is mid-batch and this node has no observers, queue it for
// unobservation once the batch ends.
func ReportObserved(o Observable) {
	s := o.graph()
	d := s.trackingDerivation

	if d != nil {
		if d.graph() != s {
			panic(fmt.Errorf("%w: %q was read while tracking %q from a different graph", ErrSharedStateMismatch, o.Name(), d.Name()))
		}
		if o.lastAccessedBy() != d.runID() {
			o.setLastAccessedBy(d.runID())
			d.addNewObserving(o)
		}
	} else if s.batchCount > 0 && o.subs().isEmpty() {
		s.queuePendingUnobservation(o)
	}
}

// ReportChanged implements spec.md §4.2: validate the write is allowed, then
// propagate the change to every observer.
func ReportChanged(o Observable) error {
	s := o.graph()
	if err := s.checkIfStateModificationsAreAllowed(o); err != nil {
		return err
	}
	s.startBatch()
	defer s.endBatch()

	propagateChanged(o)
	return nil
}
