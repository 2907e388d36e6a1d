// Package handle provides the dense, stable per-caller identity that the
// lock algorithms index their queue-node arenas by. The C source assigns
// this with a `__thread` integer; Go has no equivalent host-provided
// thread-local slot, so a handle.T is obtained once per goroutine and
// threaded explicitly through every lock call, matching the design note
// in SPEC_FULL.md that replaces the thread-local assignment with an
// explicit first-use value.
package handle

import (
	"errors"
	"sync/atomic"
)

// MaxHandles bounds the dense ID space; every qnode arena in locks is
// sized to this constant. It mirrors the build-time MAX_THREADS constant
// in the original source.
const MaxHandles = 4096

// ErrResourceExhausted is returned by New once MaxHandles handles have
// been allocated for the process.
var ErrResourceExhausted = errors.New("handle: resource exhausted: handle-id counter exceeds build-time maximum")

var counter atomic.Uint64

// T is an opaque, dense, never-reassigned identity. The zero value is not
// a valid handle; always obtain one through New.
type T struct {
	id    int
	valid bool
}

// New allocates the next dense ID by atomic fetch-add. The returned
// handle should be created once per goroutine (or once per logical
// worker) and reused for every subsequent lock call the goroutine makes.
func New() (T, error) {
	id := counter.Add(1) - 1
	if id >= MaxHandles {
		return T{}, ErrResourceExhausted
	}
	return T{id: int(id), valid: true}, nil
}

// MustNew is New but panics on exhaustion, for call sites (tests,
// internal helpers) that have no sensible fallback.
func MustNew() T {
	h, err := New()
	if err != nil {
		panic(err)
	}
	return h
}

// ID returns the dense index suitable for indexing a fixed-size arena.
func (h T) ID() int { return h.id }

// Valid reports whether h was produced by New (as opposed to a zero
// value T{}).
func (h T) Valid() bool { return h.valid }

// FromID reconstructs a handle from a previously observed dense ID, for
// internal plumbing (e.g. a lock algorithm recovering the owning
// handle of a queue node it stored only the integer ID for). Callers
// outside this module's own packages should prefer New.
func FromID(id int) T { return T{id: id, valid: true} }
