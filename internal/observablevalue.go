package internal

// ChangeEvent is the cancellable pre-write payload delivered to Intercept
// handlers (spec.md §6 "change" channel). Handlers may mutate NewValue, set
// Cancel to veto the write entirely, or set Changed to false to suppress
// only the post-write Observe notification while the write still happens.
type ChangeEvent struct {
	OldValue any
	NewValue any
	Cancel   bool
	Changed  bool
}

// ChangedEvent is the post-write notification payload (spec.md §6 "changed"
// channel).
type ChangedEvent struct {
	OldValue any
	NewValue any
}

// ObservableValue is an Atom plus a typed current value, an enhancer, an
// equality comparer, and the intercept/changed event channels (spec.md §3).
// Grounded on the teacher's internal/signal.go Read/Write, adapted to apply
// writes immediately rather than deferring to a Commit phase (REDESIGN
// FLAG 2 in SPEC_FULL.md).
type ObservableValue struct {
	*atomCore

	value    any
	enhancer Enhancer
	equals   func(a, b any) bool

	nextSubID    int
	interceptors map[int]func(*ChangeEvent)
	listeners    map[int]func(ChangedEvent)
}

// NewObservableValue constructs a boxed observable value.
func NewObservableValue(s *SharedState, name string, initial any, enhancer Enhancer, equals func(a, b any) bool) *ObservableValue {
	if enhancer == nil {
		enhancer = ReferenceEnhancer
	}
	if equals == nil {
		equals = safeEqual
	}
	return &ObservableValue{
		atomCore:     newAtomCore(s, name),
		value:        enhancer(initial, nil),
		enhancer:     enhancer,
		equals:       equals,
		interceptors: make(map[int]func(*ChangeEvent)),
		listeners:    make(map[int]func(ChangedEvent)),
	}
}

// Get reports the read and returns the current value. If the graph's
// ObservableRequiresReaction config is set and this read happens outside
// any tracked derivation, a warning is emitted on the spy channel instead
// of failing the read outright (spec.md §6 "observableRequiresReaction").
func (o *ObservableValue) Get() any {
	s := o.graph()
	if s.config().ObservableRequiresReaction && s.trackingDerivation == nil {
		s.emitSpy(SpyEvent{Kind: SpyUntrackedObservableReadWarning, Name: o.Name()})
	}
	ReportObserved(o)
	return o.value
}

// Peek returns the current value without reporting a read.
func (o *ObservableValue) Peek() any {
	return o.value
}

// Set implements spec.md §4.2's four-step write: intercept, enhance,
// equality-gated write + reportChanged, then the changed notification.
func (o *ObservableValue) Set(newValue any) error {
	old := o.value

	evt := &ChangeEvent{OldValue: old, NewValue: newValue, Changed: true}
	for _, h := range o.interceptors {
		h(evt)
		if evt.Cancel {
			return nil
		}
	}
	newValue = evt.NewValue

	newValue = o.enhancer(newValue, old)

	if o.equals(old, newValue) {
		return nil
	}

	if err := o.graph().checkIfStateModificationsAreAllowed(o); err != nil {
		return err
	}

	o.value = newValue
	if err := ReportChanged(o); err != nil {
		return err
	}

	if evt.Changed {
		for _, h := range o.listeners {
			h(ChangedEvent{OldValue: old, NewValue: newValue})
		}
	}

	o.graph().traceEmit(o.traceMode(), SpyEvent{Kind: SpyObservableValueChanged, Name: o.Name(), OldValue: old, NewValue: newValue})
	return nil
}

// Intercept registers a pre-write handler and returns a disposer.
func (o *ObservableValue) Intercept(h func(*ChangeEvent)) func() {
	id := o.nextSubID
	o.nextSubID++
	o.interceptors[id] = h
	return func() { delete(o.interceptors, id) }
}

// Observe registers a post-write handler and returns a disposer.
func (o *ObservableValue) Observe(h func(ChangedEvent)) func() {
	id := o.nextSubID
	o.nextSubID++
	o.listeners[id] = h
	return func() { delete(o.listeners, id) }
}
