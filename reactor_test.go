package reactor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpreadsheetSum(t *testing.T) {
	s := New(Config{})
	log := []int{}

	price := NewBoxOn(s, 2)
	amount := NewBoxOn(s, 3)
	total := NewComputedOn(s, func() int {
		return price.Get() * amount.Get()
	})

	dispose := AutorunOn(s, func() {
		v, err := total.Get()
		require.NoError(t, err)
		log = append(log, v)
	})
	defer dispose.Dispose()

	assert.Equal(t, []int{6}, log)

	s.RunInAction("bump", func() {
		price.Set(4)
		amount.Set(5)
	})

	assert.Equal(t, []int{6, 20}, log)
}

func TestCycleDetection(t *testing.T) {
	s := New(Config{})

	var c *Computed[int]
	c = NewComputedOn(s, func() int {
		v, err := c.Get()
		if err != nil {
			panic(err)
		}
		return v
	}, ComputedOptions[int]{KeepAlive: true})

	_, err := c.Get()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrComputedCycle))
}

type todo struct {
	Title string
}

func TestReactionExpressionEffectSplit(t *testing.T) {
	s := New(Config{})

	todos := NewBoxOn(s, []todo{{Title: "a"}, {Title: "b"}})

	var counts []int
	NewReactionOn(s,
		func() int { return len(todos.Get()) },
		func(n, previous int) { counts = append(counts, n) },
	)

	var titleSnapshots [][]string
	NewReactionOn(s,
		func() []string {
			cur := todos.Get()
			titles := make([]string, len(cur))
			for i, td := range cur {
				titles[i] = td.Title
			}
			return titles
		},
		func(titles, previous []string) { titleSnapshots = append(titleSnapshots, titles) },
	)

	// append a third todo: count changes, titles change
	s.RunInAction("append", func() {
		cur := todos.Get()
		next := append(append([]todo{}, cur...), todo{Title: "c"})
		todos.Set(next)
	})
	assert.Equal(t, []int{3}, counts)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, titleSnapshots)

	// rename the first title: count is unchanged, titles change
	s.RunInAction("rename", func() {
		cur := todos.Get()
		next := append([]todo{}, cur...)
		next[0].Title = "z"
		todos.Set(next)
	})
	assert.Equal(t, []int{3}, counts)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"z", "b", "c"}}, titleSnapshots)
}

func TestStrictMode(t *testing.T) {
	s := New(Config{EnforceActions: EnforceAlways})
	box := NewBoxOn(s, 0)

	var runs int
	dispose := AutorunOn(s, func() {
		box.Get()
		runs++
	})
	defer dispose.Dispose()
	assert.Equal(t, 1, runs)

	err := box.Set(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWriteOutsideAction))
	assert.Equal(t, 1, runs)

	s.RunInAction("bump", func() { box.Set(1) })
	assert.Equal(t, 2, runs)
}

func TestWhenWithPredicate(t *testing.T) {
	s := New(Config{})
	visible := NewBoxOn(s, true)

	var hideCalls int
	var disposedAtCallback bool
	var cancel func()
	cancel = WhenOn(s, func() bool { return !visible.Get() }, func() {
		hideCalls++
	})
	_ = disposedAtCallback

	s.RunInAction("hide", func() { visible.Set(false) })

	assert.Equal(t, 1, hideCalls)

	// the underlying reaction disposed itself the moment predicate fired;
	// flipping visible back and forth must not trigger onHide again.
	s.RunInAction("toggle", func() {
		visible.Set(true)
		visible.Set(false)
	})
	assert.Equal(t, 1, hideCalls)

	cancel() // idempotent once already fired
}

func TestSuspensionRoundTrip(t *testing.T) {
	s := New(Config{})
	var n int

	count := NewBoxOn(s, 1)
	c := NewComputedOn(s, func() int {
		n++
		return count.Get() * 2
	})

	dispose := AutorunOn(s, func() {
		_, _ = c.Get()
	})
	before := n
	assert.Equal(t, 1, before)

	dispose.Dispose()

	v, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, before+1, n)
}

func TestActionCoalescesReactionRuns(t *testing.T) {
	s := New(Config{})
	a := NewBoxOn(s, 1)
	b := NewBoxOn(s, 2)

	runs := 0
	dispose := AutorunOn(s, func() {
		a.Get()
		b.Get()
		runs++
	})
	defer dispose.Dispose()
	assert.Equal(t, 1, runs)

	s.RunInAction("bump-both", func() {
		a.Set(10)
		b.Set(20)
	})
	assert.Equal(t, 2, runs)
}

func TestActionWrapper(t *testing.T) {
	s := New(Config{EnforceActions: EnforceAlways})
	box := NewBoxOn(s, 0)

	bump := s.Action("bump", func() { box.Set(box.Get() + 1) })
	bump()
	bump()

	assert.Equal(t, 2, box.Get())
}

func TestSpyChannelObservesLifecycle(t *testing.T) {
	var kinds []SpyKind
	s := New(Config{
		Spy: func(e SpyEvent) { kinds = append(kinds, e.Kind) },
	})

	box := NewBoxOn(s, 1)
	dispose := AutorunOn(s, func() { box.Get() })
	defer dispose.Dispose()

	require.NoError(t, box.Set(2))

	assert.Contains(t, kinds, SpyReactionStart)
	assert.Contains(t, kinds, SpyReactionEnd)
	assert.Contains(t, kinds, SpyObservableValueChanged)
}

func TestTraceLogPrintsOnTracedNodeOnly(t *testing.T) {
	s := New(Config{})
	traced := NewBoxOn(s, 1, BoxOptions[int]{Name: "traced"})
	plain := NewBoxOn(s, 1, BoxOptions[int]{Name: "plain"})
	traced.Trace(TraceLog)

	require.NoError(t, traced.Set(2))
	require.NoError(t, plain.Set(2))
}

func TestTraceBreakInvokesHook(t *testing.T) {
	var broken []string
	s := New(Config{
		BreakHook: func(e SpyEvent) { broken = append(broken, e.Name) },
	})
	box := NewBoxOn(s, 1, BoxOptions[int]{Name: "watched"})
	box.Trace(TraceBreak)

	require.NoError(t, box.Set(2))
	assert.Equal(t, []string{"watched"}, broken)
}

func TestWaitForReturnsOncePredicateTrue(t *testing.T) {
	s := New(Config{})
	ready := NewBoxOn(s, false)

	done := make(chan error, 1)
	go func() {
		done <- WaitForOn(context.Background(), s, func() bool { return ready.Get() })
	}()

	time.Sleep(10 * time.Millisecond)
	s.RunInAction("flip", func() { ready.Set(true) })

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForOn never returned")
	}
}

func TestWaitForTimesOut(t *testing.T) {
	s := New(Config{})
	ready := NewBoxOn(s, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := WaitForOn(ctx, s, func() bool { return ready.Get() })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestComputedRequiresReactionRejectsOneOffRead(t *testing.T) {
	s := New(Config{})
	count := NewBoxOn(s, 1)
	c := NewComputedOn(s, func() int {
		return count.Get() * 2
	}, ComputedOptions[int]{RequiresReaction: true})

	_, err := c.Get()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadOutsideReaction))

	dispose := AutorunOn(s, func() { _, _ = c.Get() })
	defer dispose.Dispose()

	v, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestStructuralEqualFallback(t *testing.T) {
	type point struct{ X, Y int }

	s := New(Config{})
	box := NewBoxOn(s, []point{{1, 2}}, BoxOptions[[]point]{Equals: StructuralEqual[[]point]})

	var changed int
	box.Observe(func(old, new []point) { changed++ })

	require.NoError(t, box.Set([]point{{1, 2}}))
	assert.Equal(t, 0, changed, "structurally equal slices must not count as a change")

	require.NoError(t, box.Set([]point{{3, 4}}))
	assert.Equal(t, 1, changed)
}

func TestComputedSetterRunsAsAction(t *testing.T) {
	s := New(Config{EnforceActions: EnforceAlways})
	celsius := NewBoxOn(s, 0.0)

	fahrenheit := NewComputedOn(s, func() float64 {
		return celsius.Get()*9/5 + 32
	}, ComputedOptions[float64]{
		Setter: func(f float64) error {
			return celsius.Set((f - 32) * 5 / 9)
		},
	})

	require.NoError(t, fahrenheit.Set(212))
	v, err := celsius.Get(), error(nil)
	require.NoError(t, err)
	assert.InDelta(t, 100, v, 0.0001)
}

func TestMultipleIndependentGraphsDoNotInterfere(t *testing.T) {
	s1 := New(Config{})
	s2 := New(Config{})

	a1 := NewBoxOn(s1, 1)
	a2 := NewBoxOn(s2, 100)

	var log1, log2 []int
	d1 := AutorunOn(s1, func() { log1 = append(log1, a1.Get()) })
	defer d1.Dispose()
	d2 := AutorunOn(s2, func() { log2 = append(log2, a2.Get()) })
	defer d2.Dispose()

	require.NoError(t, a1.Set(2))
	require.NoError(t, a2.Set(200))

	assert.Equal(t, []int{1, 2}, log1)
	assert.Equal(t, []int{100, 200}, log2)
}

func TestUnhandledReactionErrorCallback(t *testing.T) {
	var gotReaction *Reaction
	var gotErr error
	s := New(Config{
		SuppressReactionErrors: true,
		OnUnhandledReactionError: func(r *Reaction, err error) {
			gotReaction = r
			gotErr = err
		},
	})

	box := NewBoxOn(s, 0)
	r := AutorunOn(s, func() {
		if box.Get() == 1 {
			panic(fmt.Errorf("boom"))
		}
	})
	defer r.Dispose()

	require.NoError(t, box.Set(1))

	require.Error(t, gotErr)
	assert.Same(t, r, gotReaction)
	assert.False(t, r.IsDisposed())
}
