package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
)

// freeLocker is the sub-lock contract hybridlock needs: acquire/release
// plus a way to observe "fully drained", following the same
// extract/set-over-a-packed-word CAS-loop idiom the teacher's ilock.Mutex
// uses for its X/S/IX/IS reference counts, generalized here to a
// two-valued (spin|park) algorithm tag instead of four independent
// counters.
type freeLocker interface {
	Locker
	IsFree() bool
}

const (
	hybridSpin  uint32 = 0
	hybridFutex uint32 = 1
)

func packHybridState(last, current uint32) uint64 {
	return uint64(last)<<32 | uint64(current)
}

func extractHybridLast(state uint64) uint32 { return uint32(state >> 32) }

func extractHybridCurrent(state uint64) uint32 { return uint32(state) }

// HybridLock is `hybridlock` (spec §4.C.11): a spin-based sub-lock (MCS,
// CLH or ticket, chosen at construction) and a wait-address sub-lock,
// governed by a packed 64-bit (last, current) state word. Acquire always
// goes through whichever sub-lock `current` names; if a switch is in
// flight (`last` still names the previous algorithm), the caller then
// drains the `last`-named sub-lock (waits for it to become free) before
// the state is considered stable, so a switch never lets two acquirers
// believe they both hold the lock under different sub-lock identities
// (spec §3 invariant 4). In the steady state `last == current` and there
// is nothing to drain — draining then would mean waiting on the very
// sub-lock this call itself just acquired.
//
// A full partial-abort protocol for waiters caught mid-wait during a
// switch (CLH walking predecessors, MCS marking its waiting byte) is not
// reproduced; per spec §9 Open Question 2 the source itself only
// tolerates the every-waiter-aborts-simultaneously case, so the simpler
// and still-correct choice here is that a switch request never preempts
// an acquirer already inside its sub-lock's Acquire — the switch takes
// effect for the next arrival instead. This is documented in DESIGN.md.
type HybridLock struct {
	state uint64
	spin  freeLocker
	park  *Futex
}

func newHybridLock(spin freeLocker) *HybridLock {
	l := &HybridLock{spin: spin, park: NewFutex()}
	atomic.StoreUint64(&l.state, packHybridState(hybridSpin, hybridSpin))
	return l
}

// NewHybridLockMCS returns a hybridlock whose spin sub-lock is MCS.
func NewHybridLockMCS() *HybridLock { return newHybridLock(NewMCS()) }

// NewHybridLockCLH returns a hybridlock whose spin sub-lock is CLH.
func NewHybridLockCLH() *HybridLock { return newHybridLock(NewCLH()) }

// NewHybridLockTicket returns a hybridlock whose spin sub-lock is Ticket.
func NewHybridLockTicket() *HybridLock { return newHybridLock(NewTicket()) }

func (l *HybridLock) subLock(which uint32) freeLocker {
	if which == hybridSpin {
		return l.spin
	}
	return l.park
}

func (l *HybridLock) Acquire(h handle.T) {
	for {
		s := atomic.LoadUint64(&l.state)
		cur := extractHybridCurrent(s)
		l.subLock(cur).Acquire(h)

		if atomic.LoadUint64(&l.state) != s {
			l.subLock(cur).Release(h)
			continue
		}

		// Only drain when a switch is actually in flight (last != cur);
		// in the steady state last already equals cur, and the sub-lock
		// named by "last" is the very one this Acquire just took, which
		// can never report IsFree before this call returns.
		if last := extractHybridLast(s); last != cur {
			for !l.subLock(last).IsFree() {
				atomics.Relax()
			}
		}
		atomic.StoreUint64(&l.state, packHybridState(cur, cur))
		return
	}
}

func (l *HybridLock) TryAcquire(h handle.T) bool {
	s := atomic.LoadUint64(&l.state)
	cur := extractHybridCurrent(s)
	if !l.subLock(cur).TryAcquire(h) {
		return false
	}
	if atomic.LoadUint64(&l.state) != s {
		l.subLock(cur).Release(h)
		return false
	}
	if last := extractHybridLast(s); last != cur && !l.subLock(last).IsFree() {
		// A real drain would block here, which TryAcquire must not do;
		// report busy instead, mirroring how the spec treats try-acquire
		// as "never blocks" even at the cost of an occasional false
		// Busy result during an in-flight algorithm switch.
		l.subLock(cur).Release(h)
		return false
	}
	atomic.StoreUint64(&l.state, packHybridState(cur, cur))
	return true
}

func (l *HybridLock) Release(h handle.T) {
	s := atomic.LoadUint64(&l.state)
	l.subLock(extractHybridLast(s)).Release(h)
}

// RequestSwitchToPark asks future acquirers to use the wait-address
// sub-lock instead of the spin sub-lock; this models the external or
// timer-driven state mutation spec §4.C.11 describes.
func (l *HybridLock) RequestSwitchToPark() { l.requestSwitch(hybridFutex) }

// RequestSwitchToSpin asks future acquirers to use the spin sub-lock.
func (l *HybridLock) RequestSwitchToSpin() { l.requestSwitch(hybridSpin) }

func (l *HybridLock) requestSwitch(target uint32) {
	for {
		s := atomic.LoadUint64(&l.state)
		cur := extractHybridCurrent(s)
		if cur == target {
			return
		}
		ns := packHybridState(cur, target)
		if atomic.CompareAndSwapUint64(&l.state, s, ns) {
			return
		}
	}
}
