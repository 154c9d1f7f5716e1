package internal

// Derivation is the capability trait for nodes that run tracked user code:
// ComputedValue and Reaction implement it by embedding *derivationCore and
// defining their own onBecomeStale (a computed propagates maybe-changed
// upward; a reaction schedules itself — spec.md §4.4).
type Derivation interface {
	Name() string
	graph() *SharedState
	deps() *linkSet
	state() DerivationState
	setState(DerivationState)
	runID() int64
	setRunID(int64)
	addNewObserving(Observable)
	takeNewObserving() []Observable
	onBecomeStale()
	requiresObservableFlag() bool
}

// derivationCore is the shared derivation-side bookkeeping embedded by
// ComputedValue and Reaction. Grounded on the teacher's internal/computed.go
// (depsHead list) and internal/tracker.go (run-scoped current-derivation),
// generalized from height tracking to the dependenciesState lattice
// spec.md §3/§4.3 mandates (REDESIGN FLAG 1 in SPEC_FULL.md).
type derivationCore struct {
	name   string
	shared *SharedState

	dependenciesState DerivationState
	rid               int64

	observing    linkSet
	newObserving []Observable

	tracing            TraceMode
	requiresObservable bool
}

func newDerivationCore(s *SharedState, name string) derivationCore {
	return derivationCore{name: name, shared: s, dependenciesState: NotTracking}
}

// SetRequiresObservable arms the spec.md §4.3 invariant-5 warning: a trace
// event fires if this derivation ever completes a run having observed
// nothing.
func (d *derivationCore) SetRequiresObservable(v bool) { d.requiresObservable = v }

func (d *derivationCore) requiresObservableFlag() bool { return d.requiresObservable }

// SetTrace arms spec.md §6's per-node trace mode (None/Log/Break).
func (d *derivationCore) SetTrace(mode TraceMode) { d.tracing = mode }

func (d *derivationCore) traceMode() TraceMode { return d.tracing }

func (d *derivationCore) Name() string                    { return d.name }
func (d *derivationCore) graph() *SharedState              { return d.shared }
func (d *derivationCore) deps() *linkSet                   { return &d.observing }
func (d *derivationCore) state() DerivationState           { return d.dependenciesState }
func (d *derivationCore) setState(s DerivationState)       { d.dependenciesState = s }
func (d *derivationCore) runID() int64                     { return d.rid }
func (d *derivationCore) setRunID(id int64)                { d.rid = id }
func (d *derivationCore) addNewObserving(o Observable)      { d.newObserving = append(d.newObserving, o) }

func (d *derivationCore) takeNewObserving() []Observable {
	out := d.newObserving
	d.newObserving = nil
	return out
}

// clearObserving unsubscribes from every currently observed dependency,
// used when a computed suspends or a reaction is disposed.
func (d *derivationCore) clearObserving() {
	for l := range d.observing.iterDeps() {
		unlink(l)
	}
}

// trackDerivedFunction implements spec.md §4.3: run f with d as the tracking
// derivation, then bind the dependencies it touched. Any panic raised by f
// is recovered and returned so the caller (ComputedValue/Reaction) can store
// or route it per its own error-boundary policy; tracking state is always
// torn down even when f panics.
func trackDerivedFunction(s *SharedState, d Derivation, f func()) (recovered any) {
	prevAllowReads := s.startAllowStateReads(true)
	d.setState(UpToDate)
	d.takeNewObserving()
	d.setRunID(s.incrementRunID())

	prevTracking := s.StartTracking(d)
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = r
			}
		}()
		f()
	}()
	s.EndTracking(prevTracking)

	bindDependencies(d)
	s.endAllowStateReads(prevAllowReads)

	if recovered == nil && d.deps().isEmpty() && d.requiresObservableFlag() {
		s.emitSpy(SpyEvent{Kind: SpyObservedNothingWarning, Name: d.Name()})
	}

	return recovered
}

// bindDependencies reconciles d.observing with the freshly collected
// d.newObserving: links that are no longer read are removed, newly read
// links are added, and every bound dependency's lowestObserverState is
// lowered to d's own (UpToDate) state, since d is now one of its up-to-date
// observers. d's dependenciesState is then elevated if any bound dependency
// that is itself a derivation (a ComputedValue) is not UpToDate (spec.md
// §4.3). Resolves the spec's "lowest dependency state" phrase as a MAX
// aggregation starting from UpToDate: a MIN aggregation can never rise
// above its UpToDate seed, so it could never produce the documented "worse
// than UpToDate" outcome.
func bindDependencies(d Derivation) {
	newObserving := d.takeNewObserving()

	newSet := make(map[Observable]bool, len(newObserving))
	for _, o := range newObserving {
		newSet[o] = true
	}

	for l := range d.deps().iterDeps() {
		if !newSet[l.Dep] {
			unlink(l)
		}
	}

	existing := make(map[Observable]bool, len(newObserving))
	for l := range d.deps().iterDeps() {
		existing[l.Dep] = true
	}

	worst := UpToDate
	for _, o := range newObserving {
		if !existing[o] {
			link(d, o)
		}
		if o.lowestState() > d.state() {
			o.setLowestState(d.state())
		}
		if dd, ok := o.(Derivation); ok && dd.state() > worst {
			worst = dd.state()
		}
	}

	if worst > UpToDate {
		d.setState(worst)
		d.onBecomeStale()
	}
}

// shouldCompute implements spec.md §4.3: decide whether d needs recomputing
// before its value can be trusted.
func shouldCompute(d Derivation) bool {
	switch d.state() {
	case UpToDate:
		return false
	case NotTracking, Stale:
		return true
	case PossiblyStale:
		s := d.graph()
		prevTracking := s.StartTracking(nil)
		for l := range d.deps().iterDeps() {
			if cv, ok := l.Dep.(*ComputedValue); ok {
				cv.ensureUpToDate()
				if d.state() == Stale {
					break
				}
			}
		}
		s.EndTracking(prevTracking)

		if d.state() == Stale {
			return true
		}

		d.setState(UpToDate)
		for l := range d.deps().iterDeps() {
			l.Dep.setLowestState(UpToDate)
		}
		return false
	default:
		return false
	}
}
