package internal

import "fmt"

// actionSnapshot captures what StartAction overrides so EndAction can
// restore it, grounded on the teacher's internal/batcher.go save/restore
// pair around a batch's outer edges.
type actionSnapshot struct {
	prevTracking     Derivation
	prevAllowChanges bool
	prevAllowReads   bool
}

// StartAction implements spec.md §4.2's action entry: suspend dependency
// tracking, allow state changes, and open a batch. EndAction must be called
// with the returned snapshot exactly once, even if the action body panics.
func StartAction(s *SharedState) actionSnapshot {
	snap := actionSnapshot{
		prevTracking:     s.StartTracking(nil),
		prevAllowChanges: s.startAllowStateChanges(true),
		prevAllowReads:   s.startAllowStateReads(true),
	}
	s.actionDepth++
	s.startBatch()
	return snap
}

// EndAction restores the snapshot StartAction produced and closes the
// batch, flushing any reactions the action scheduled. Returns
// ErrActionNestingError instead of restoring anything if actionDepth has
// already gone to zero, the signature of EndAction being called twice for
// one StartAction (e.g. a disposer firing after its owning action already
// closed).
func EndAction(s *SharedState, snap actionSnapshot) error {
	s.actionDepth--
	if err := CheckActionNesting(s.actionDepth); err != nil {
		s.actionDepth = 0
		return err
	}

	err := s.endBatch()
	s.endAllowStateReads(snap.prevAllowReads)
	s.endAllowStateChanges(snap.prevAllowChanges)
	s.EndTracking(snap.prevTracking)
	return err
}

// RunAction runs fn as a single named action, emitting start/end spy
// events and propagating both fn's error and any reaction-flush error
// (spec.md §4.2, §6 Action). A panic inside fn still unwinds the action
// snapshot via defer before repanicking.
func RunAction(s *SharedState, name string, fn func() error) (err error) {
	s.emitSpy(SpyEvent{Kind: SpyActionStart, Name: name})
	snap := StartAction(s)

	defer func() {
		endErr := EndAction(s, snap)
		if err == nil {
			err = endErr
		}
		s.emitSpy(SpyEvent{Kind: SpyActionEnd, Name: name, Err: err})
	}()

	err = fn()
	return err
}

// RunActionVoid adapts a fn with no return value to RunAction, for callers
// (e.g. the public RunInAction) whose fn never fails on its own.
func RunActionVoid(s *SharedState, name string, fn func()) error {
	return RunAction(s, name, func() error {
		fn()
		return nil
	})
}

// CheckActionNesting returns ErrActionNestingError if depth has gone
// negative, the signature of a StartAction/EndAction pair called out of
// order (e.g. a disposer invoking EndAction after its owning action already
// closed). EndAction uses this to turn a programmer error into a typed
// error instead of a silent state corruption; the public reactor package's
// RunInAction/Action wrappers discard that error.
func CheckActionNesting(depth int) error {
	if depth < 0 {
		return fmt.Errorf("%w: action depth went negative", ErrActionNestingError)
	}
	return nil
}
