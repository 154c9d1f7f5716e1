package internal

import "iter"

// DependencyLink is a bidirectional edge between an Observable (dep) and a
// Derivation (sub). It is simultaneously a node in dep's circular "subs"
// list (via prevSub/nextSub) and in sub's circular "deps" list (via
// prevDep/nextDep), mirroring the teacher's single-struct, dual-membership
// linked-list design (internal/node.go's DependencyLink).
type DependencyLink struct {
	Dep Observable
	Sub Derivation

	prevDep *DependencyLink
	nextDep *DependencyLink

	prevSub *DependencyLink
	nextSub *DependencyLink
}

// linkSet is a circular doubly linked list head, reused both as an
// Observable's set of subscriber links and a Derivation's set of dependency
// links. head.prevX always points at the tail, giving O(1) append.
type linkSet struct {
	head *DependencyLink
}

func (ls *linkSet) appendAsDep(l *DependencyLink) {
	if ls.head == nil {
		ls.head = l
		l.prevDep = l
		l.nextDep = nil
		return
	}

	tail := ls.head.prevDep
	tail.nextDep = l
	l.prevDep = tail
	l.nextDep = nil
	ls.head.prevDep = l
}

func (ls *linkSet) appendAsSub(l *DependencyLink) {
	if ls.head == nil {
		ls.head = l
		l.prevSub = l
		l.nextSub = nil
		return
	}

	tail := ls.head.prevSub
	tail.nextSub = l
	l.prevSub = tail
	l.nextSub = nil
	ls.head.prevSub = l
}

func (ls *linkSet) removeAsDep(l *DependencyLink) {
	if l.prevDep == l {
		ls.head = nil
		l.prevDep = nil
		l.nextDep = nil
		return
	}

	if l == ls.head {
		ls.head = l.nextDep
	} else {
		l.prevDep.nextDep = l.nextDep
	}

	if l.nextDep != nil {
		l.nextDep.prevDep = l.prevDep
	} else {
		ls.head.prevDep = l.prevDep
	}

	l.prevDep = nil
	l.nextDep = nil
}

func (ls *linkSet) removeAsSub(l *DependencyLink) {
	if l.prevSub == l {
		ls.head = nil
		l.prevSub = nil
		l.nextSub = nil
		return
	}

	if l == ls.head {
		ls.head = l.nextSub
	} else {
		l.prevSub.nextSub = l.nextSub
	}

	if l.nextSub != nil {
		l.nextSub.prevSub = l.prevSub
	} else {
		ls.head.prevSub = l.prevSub
	}

	l.prevSub = nil
	l.nextSub = nil
}

func (ls *linkSet) isEmpty() bool {
	return ls.head == nil
}

// iterDeps iterates a derivation's dependency links in insertion order.
// Safe against the callback removing the yielded link.
func (ls *linkSet) iterDeps() iter.Seq[*DependencyLink] {
	return func(yield func(*DependencyLink) bool) {
		l := ls.head
		for l != nil {
			next := l.nextDep
			if !yield(l) {
				return
			}
			l = next
		}
	}
}

// iterSubs iterates an observable's subscriber links in insertion order.
// Safe against the callback removing the yielded link.
func (ls *linkSet) iterSubs() iter.Seq[*DependencyLink] {
	return func(yield func(*DependencyLink) bool) {
		l := ls.head
		for l != nil {
			next := l.nextSub
			if !yield(l) {
				return
			}
			l = next
		}
	}
}

// link creates the bidirectional edge between sub and dep, unless it is
// already the most recently added dependency of sub (cheap re-run dedupe,
// grounded on the teacher's node.go Link short-circuit).
func link(sub Derivation, dep Observable) {
	deps := sub.deps()
	if !deps.isEmpty() && deps.head.prevDep.Dep == dep {
		return
	}

	l := &DependencyLink{Dep: dep, Sub: sub}
	wasObserved := !dep.subs().isEmpty()
	deps.appendAsDep(l)
	dep.subs().appendAsSub(l)

	// isBeingObserved false->true raises onBecomeObserved (spec.md §4.2).
	if !wasObserved && !dep.beingObserved() {
		dep.setBeingObserved(true)
		dep.fireOnBecomeObserved()
	}
}

// unlink removes the bidirectional edge. If dep loses its last observer, it
// is queued for unobservation rather than unobserved immediately: actual
// suspension/onBecomeUnobserved firing happens in
// SharedState.processPendingUnobservations at the outermost endBatch
// (spec.md §3 invariant 5).
func unlink(l *DependencyLink) {
	l.Sub.deps().removeAsDep(l)
	dep := l.Dep
	dep.subs().removeAsSub(l)

	if dep.subs().isEmpty() {
		dep.graph().queuePendingUnobservation(dep)
	}
}
