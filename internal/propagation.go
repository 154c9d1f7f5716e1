package internal

// propagateChanged implements spec.md §4.4: invoked when an observable's
// value changed for certain (an atom write, or a computed value confirmed
// changed). Idempotent once o.lowestObserverState is already Stale.
func propagateChanged(o Observable) {
	if o.lowestState() == Stale {
		return
	}
	o.setLowestState(Stale)

	for l := range o.subs().iterSubs() {
		d := l.Sub
		switch d.state() {
		case UpToDate, PossiblyStale:
			d.setState(Stale)
			d.onBecomeStale()
		}
	}
}

// propagateMaybeChanged implements spec.md §4.4: invoked when a computed
// value's result might change (it became Stale itself, but hasn't
// recomputed yet). Observers already PossiblyStale or worse are left alone.
func propagateMaybeChanged(c Observable) {
	if c.lowestState() != UpToDate {
		return
	}
	c.setLowestState(PossiblyStale)

	for l := range c.subs().iterSubs() {
		d := l.Sub
		if d.state() == UpToDate {
			d.setState(PossiblyStale)
			d.onBecomeStale()
		}
	}
}

// propagateChangeConfirmed implements spec.md §4.4: invoked after a
// computed value recomputed and its result changed — promote observers
// still sitting at PossiblyStale (from the earlier propagateMaybeChanged)
// up to Stale.
func propagateChangeConfirmed(c Observable) {
	if c.lowestState() == Stale {
		return
	}
	c.setLowestState(Stale)

	for l := range c.subs().iterSubs() {
		d := l.Sub
		if d.state() == PossiblyStale {
			d.setState(Stale)
			d.onBecomeStale()
		}
	}
}
