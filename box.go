package reactor

import "github.com/reactorhq/reactor/internal"

// BoxOptions configures a Box at construction (spec.md §6 observable opts).
type BoxOptions[T any] struct {
	Name     string
	Enhancer internal.Enhancer
	Equals   func(a, b T) bool
}

// Box is a typed, mutable cell in the reactive graph: reading it inside a
// tracked derivation records a dependency, writing it propagates to every
// dependent (spec.md §3 ObservableValue, generalized with Go generics at
// this public boundary per the teacher's Signal[T] pattern). Go methods
// cannot take their own type parameters, so box construction lives in the
// package-level NewBox/NewBoxOn functions rather than on SharedState.
type Box[T any] struct {
	v *internal.ObservableValue
}

// NewBox constructs a Box against the default graph.
func NewBox[T any](initial T, opts ...BoxOptions[T]) *Box[T] {
	return NewBoxOn[T](Default(), initial, opts...)
}

// NewBoxOn constructs a Box against an explicit graph.
func NewBoxOn[T any](s *SharedState, initial T, opts ...BoxOptions[T]) *Box[T] {
	var opt BoxOptions[T]
	if len(opts) > 0 {
		opt = opts[0]
	}

	var equals func(a, b any) bool
	if opt.Equals != nil {
		eq := opt.Equals
		equals = func(a, b any) bool { return eq(as[T](a), as[T](b)) }
	}

	name := opt.Name
	if name == "" {
		name = "box"
	}

	ov := internal.NewObservableValue(s.s, name, initial, opt.Enhancer, equals)
	return &Box[T]{v: ov}
}

// Get reads the current value, tracking the dependency if called inside a
// tracked derivation.
func (b *Box[T]) Get() T {
	return as[T](b.v.Get())
}

// Peek reads the current value without tracking a dependency (spec.md §4.2
// untracked read).
func (b *Box[T]) Peek() T {
	return as[T](b.v.Peek())
}

// Set writes a new value, propagating to every dependent (spec.md §4.2).
func (b *Box[T]) Set(v T) error {
	return b.v.Set(v)
}

// Intercept registers a pre-write handler and returns a disposer
// (spec.md §6 "change" channel). The handler returns the (possibly
// rewritten) value that should actually be written; setting *cancel to
// true vetoes the write entirely.
func (b *Box[T]) Intercept(h func(old, new T, cancel *bool) T) func() {
	return b.v.Intercept(func(e *internal.ChangeEvent) {
		cancel := false
		result := h(as[T](e.OldValue), as[T](e.NewValue), &cancel)
		e.NewValue = result
		e.Cancel = cancel
	})
}

// Observe registers a post-write handler and returns a disposer
// (spec.md §6 "changed" channel).
func (b *Box[T]) Observe(h func(old, new T)) func() {
	return b.v.Observe(func(e internal.ChangedEvent) {
		h(as[T](e.OldValue), as[T](e.NewValue))
	})
}

// Name returns the box's diagnostic name.
func (b *Box[T]) Name() string { return b.v.Name() }

// Trace arms this box's trace mode (spec.md §6 "trace"): TraceLog prints a
// one-line record of every write to this box to standard output; TraceBreak
// hands the event to the graph's configured BreakHook instead.
func (b *Box[T]) Trace(mode TraceMode) { b.v.SetTrace(mode) }
