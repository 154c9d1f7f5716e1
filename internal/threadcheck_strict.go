//go:build reactor_strict

package internal

import (
	"fmt"

	"github.com/petermattis/goid"
)

// assertSingleThreaded panics if called from a goroutine other than the one
// that first mutated this graph, capturing that goroutine's id on first
// call. Opt-in via the reactor_strict build tag; spec.md §5 describes this
// as a debug-only affordance, not a correctness mechanism the engine relies
// on.
func assertSingleThreaded(s *SharedState) {
	gid := goid.Get()
	if s.owningGID == 0 {
		s.owningGID = gid
		return
	}
	if s.owningGID != gid {
		panic(fmt.Sprintf("reactor: SharedState accessed from goroutine %d, owned by goroutine %d", gid, s.owningGID))
	}
}
