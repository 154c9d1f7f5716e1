//go:build !reactor_strict

package internal

// assertSingleThreaded is a no-op in production builds: the engine assumes
// single-threaded cooperative use (spec.md §5) and performs no locking.
// Build with -tags reactor_strict to enable the goroutine-identity
// assertion in threadcheck_strict.go, grounded on the teacher's
// runtime_default.go/runtime_wasm.go build-tag split.
func assertSingleThreaded(*SharedState) {}
