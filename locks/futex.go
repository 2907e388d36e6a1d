package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/handle"
	"github.com/dijkstracula/go-locks/park"
)

// Futex is the wait-address lock (spec §4.C.4): a 32-bit word with
// states {free=0, held-no-waiters=1, held-with-waiters=2}. State 2 is
// sticky while any waiter remains, which is conservative but avoids a
// lost wakeup.
type Futex struct {
	state uint32
}

// NewFutex returns a free futex-style lock.
func NewFutex() *Futex { return &Futex{} }

func (l *Futex) Acquire(_ handle.T) {
	if atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		return
	}
	if atomic.LoadUint32(&l.state) != 2 {
		atomic.SwapUint32(&l.state, 2)
	}
	for atomic.SwapUint32(&l.state, 2) != 0 {
		park.Wait(&l.state, 2)
	}
}

func (l *Futex) TryAcquire(_ handle.T) bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// IsFree reports whether the state word is 0 (free), used by
// hybridlock.go to detect when this sub-lock has fully drained.
func (l *Futex) IsFree() bool { return atomic.LoadUint32(&l.state) == 0 }

func (l *Futex) Release(_ handle.T) {
	// fetch-sub 1; new==0 iff the prior value was 1 (no waiters).
	if new := atomic.AddUint32(&l.state, ^uint32(0)); new != 0 {
		atomic.StoreUint32(&l.state, 0)
		park.Wake(&l.state, 1)
	}
}
