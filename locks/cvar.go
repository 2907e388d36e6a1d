package locks

import (
	"sync/atomic"
	"time"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
	"github.com/dijkstracula/go-locks/park"
)

// Cond is the reusable ticket/target condition-variable pattern
// (component E), built atop park and usable with any Locker. target
// counts waiters ever enqueued, seq counts those released; both are
// monotone and target >= seq always (spec §3 invariant 5).
type Cond struct {
	target uint32
	_      atomics.CacheLinePad
	seq    uint32
}

// NewCond returns a Cond ready for use; the zero value is also usable,
// this constructor exists for symmetry with the algorithm constructors.
func NewCond() *Cond { return &Cond{} }

// Wait atomically releases l and blocks until Signal or Broadcast wakes
// this waiter's ticket, then reacquires l. Spurious wakes from park do
// not release l early; the loop re-checks its ticket against seq.
func (c *Cond) Wait(h handle.T, l Locker) {
	ticket := atomic.AddUint32(&c.target, 1)
	l.Release(h)
	for {
		seq := atomic.LoadUint32(&c.seq)
		if ticket <= seq {
			break
		}
		park.Wait(&c.seq, seq)
	}
	l.Acquire(h)
}

// TimedWait is Wait with an absolute deadline. It returns timedOut=true
// if the deadline elapsed with no signal reaching this waiter's ticket;
// l is reacquired in both outcomes.
func (c *Cond) TimedWait(h handle.T, l Locker, deadline time.Time) (timedOut bool) {
	ticket := atomic.AddUint32(&c.target, 1)
	l.Release(h)
	for {
		seq := atomic.LoadUint32(&c.seq)
		if ticket <= seq {
			l.Acquire(h)
			return false
		}
		if !time.Now().Before(deadline) {
			l.Acquire(h)
			return true
		}
		if res := park.WaitTimeoutAbs(&c.seq, seq, deadline); res == park.TimedOut {
			seq = atomic.LoadUint32(&c.seq)
			l.Acquire(h)
			return ticket > seq
		}
	}
}

// Signal releases at most one waiter: it advances seq by one, which lets
// the waiter whose ticket equals the new seq value proceed, and wakes one
// waiter parked on seq. The woken waiter is the earliest one parked, which
// is not necessarily the one whose ticket was released. With no waiter
// outstanding (seq already equals target) Signal does nothing.
func (c *Cond) Signal() {
	for {
		seq := atomic.LoadUint32(&c.seq)
		if seq >= atomic.LoadUint32(&c.target) {
			return
		}
		if atomic.CompareAndSwapUint32(&c.seq, seq, seq+1) {
			break
		}
	}
	park.Wake(&c.seq, 1)
}

// Broadcast releases every waiter enqueued so far by fast-forwarding seq
// to the current target and waking all parked waiters.
func (c *Cond) Broadcast() {
	t := atomic.LoadUint32(&c.target)
	atomic.StoreUint32(&c.seq, t)
	park.Wake(&c.seq, int(t))
}
