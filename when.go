package reactor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/reactorhq/reactor/internal"
)

// When runs an autorun over predicate, disposing itself and invoking then
// the first time predicate returns true (spec.md §6 "when"). It returns a
// disposer that cancels the wait early if called before predicate fires.
func When(predicate func() bool, then func(), opts ...ReactionOptions) func() {
	return WhenOn(Default(), predicate, then, opts...)
}

// WhenOn is When against an explicit graph.
func WhenOn(s *SharedState, predicate func() bool, then func(), opts ...ReactionOptions) func() {
	var opt ReactionOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	name := opt.Name
	if name == "" {
		name = "when"
	}

	pub := &Reaction{}
	var ir *internal.Reaction
	ir = internal.NewReaction(s.s, name, func() {
		if predicate() {
			ir.Dispose()
			then()
		}
	}, opt.ErrorHandler)
	ir.ConfigureSchedule(opt.Delay, opt.Scheduler)
	ir.SetRequiresObservable(opt.RequiresObservable || s.cfg.ReactionRequiresObservable)
	pub.r = ir
	s.registerReaction(ir, pub)

	ir.Track()
	return pub.Dispose
}

// When is the (*SharedState) form of WhenOn.
func (s *SharedState) When(predicate func() bool, then func(), opts ...ReactionOptions) func() {
	return WhenOn(s, predicate, then, opts...)
}

// WaitFor blocks until predicate becomes true, ctx is cancelled, or (if
// ctx carries a deadline) that deadline elapses — spec.md §6's "when"
// exposed as a Go-idiomatic blocking call instead of a disposer/promise
// handle (spec.md has no promise type to port; see SPEC_FULL.md
// [SUPPLEMENTED FEATURES]). Returns nil once predicate fires, an
// ErrTimeout-wrapped error when ctx's deadline elapses, and ctx.Err() on
// any other cancellation.
func WaitFor(ctx context.Context, predicate func() bool) error {
	return WaitForOn(ctx, Default(), predicate)
}

// WaitForOn is WaitFor against an explicit graph.
func WaitForOn(ctx context.Context, s *SharedState, predicate func() bool) error {
	done := make(chan struct{})

	dispose := WhenOn(s, predicate, func() { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		dispose()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", internal.ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	}
}

// StructuralEqual is the reflect.DeepEqual-based equality fallback
// spec.md's "equalityComparer" calls for when T is not comparable
// (SPEC_FULL.md [SUPPLEMENTED FEATURES]).
func StructuralEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}
