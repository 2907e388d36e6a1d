// Package locks implements the ~15 concrete lock algorithms that make up
// component C of SPEC_FULL.md, each built atop atomics, park and handle.
// Every algorithm exports the same Locker surface so the facade package
// can select one of them as a closed tagged variant at construction time.
package locks

import (
	"errors"
	"time"

	"github.com/dijkstracula/go-locks/handle"
)

// Locker is the common acquire/try-acquire/release contract every
// algorithm in this package implements (spec §4.C.1).
type Locker interface {
	// Acquire blocks until the caller holds the lock.
	Acquire(h handle.T)
	// TryAcquire returns true iff the lock was free and is now held by
	// the caller; it never blocks.
	TryAcquire(h handle.T) bool
	// Release releases a lock held by the caller. Release by a
	// non-owner is undefined, per spec §4.C.14.
	Release(h handle.T)
}

// CondWaiter is implemented by algorithms (uscl) that need to intercept
// a condvar wait to adjust their own bookkeeping around the reacquire —
// uscl suspends its ban clock for the duration of a wait, since spec
// §4.C.13 states "condvar waiters do not carry the ban across wait." The
// facade prefers this interface over calling Cond.Wait/TimedWait
// directly when an algorithm implements it.
type CondWaiter interface {
	Locker
	Wait(h handle.T, c *Cond)
	TimedWait(h handle.T, c *Cond, deadline time.Time) (timedOut bool)
}

// Destroyer is the optional teardown hook facade.Lock.Destroy calls when
// an algorithm implements it. No algorithm in this package implements it,
// so Destroy is currently a no-op for all of them.
type Destroyer interface {
	Destroy()
}

var (
	// ErrBusy is returned by TryAcquire when the lock was already held.
	ErrBusy = errors.New("locks: busy")
	// ErrUnsupported is returned when a condvar operation is invoked
	// against an algorithm that cannot support it.
	ErrUnsupported = errors.New("locks: unsupported operation for this algorithm")
)
