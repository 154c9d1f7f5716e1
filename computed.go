package reactor

import "github.com/reactorhq/reactor/internal"

// ComputedOptions configures a Computed at construction (spec.md §6).
type ComputedOptions[T any] struct {
	Name             string
	Setter           func(T) error
	Equals           func(a, b T) bool
	KeepAlive        bool
	RequiresReaction bool
}

// Computed is a lazily evaluated, memoized derivation: while it is observed
// (or kept alive) its getter runs only when read while stale, and its
// cached result is reused by every reader until a tracked dependency
// actually changes. A read outside any batch with no observer and no
// KeepAlive runs the getter every time (spec.md §3 ComputedValue, §4.5).
type Computed[T any] struct {
	c *internal.ComputedValue
}

// NewComputed constructs a read-only Computed against the default graph.
func NewComputed[T any](getter func() T, opts ...ComputedOptions[T]) *Computed[T] {
	return NewComputedOn[T](Default(), getter, opts...)
}

// NewComputedOn constructs a Computed against an explicit graph.
func NewComputedOn[T any](s *SharedState, getter func() T, opts ...ComputedOptions[T]) *Computed[T] {
	var opt ComputedOptions[T]
	if len(opts) > 0 {
		opt = opts[0]
	}

	var equals func(a, b any) bool
	if opt.Equals != nil {
		eq := opt.Equals
		equals = func(a, b any) bool { return eq(as[T](a), as[T](b)) }
	}

	var setter func(any) error
	if opt.Setter != nil {
		sfn := opt.Setter
		setter = func(v any) error { return sfn(as[T](v)) }
	}

	name := opt.Name
	if name == "" {
		name = "computed"
	}

	cv := internal.NewComputedValue(s.s, name, func() any { return getter() }, internal.ComputedOptions{
		Setter:           setter,
		Equals:           equals,
		KeepAlive:        opt.KeepAlive,
		RequiresReaction: opt.RequiresReaction,
	})
	return &Computed[T]{c: cv}
}

// Get evaluates (or reuses the cached) value, tracking the dependency if
// called inside a tracked derivation. Panics raised by the getter surface
// as an ErrComputedReadFailed-wrapped error instead of propagating the
// original panic (spec.md §4.5, §7).
func (c *Computed[T]) Get() (T, error) {
	v, err := c.c.Value()
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v), nil
}

// MustGet is Get without the error return, for call sites that already
// know the getter cannot fail.
func (c *Computed[T]) MustGet() T {
	v, err := c.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Set runs the configured setter as an action (spec.md §4.5). Returns
// ErrComputedReadOnly if no setter was configured.
func (c *Computed[T]) Set(v T) error {
	return c.c.SetValue(v)
}

// Name returns the computed's diagnostic name.
func (c *Computed[T]) Name() string { return c.c.Name() }

// Trace arms this computed's trace mode (spec.md §6 "trace"): TraceLog
// prints a one-line record to standard output on every successful Get;
// TraceBreak hands that event to the graph's configured BreakHook instead.
func (c *Computed[T]) Trace(mode TraceMode) { c.c.SetTrace(mode) }
