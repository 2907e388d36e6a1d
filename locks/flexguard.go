package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
	"github.com/dijkstracula/go-locks/park"
	"github.com/dijkstracula/go-locks/preempt"
)

const flexguardProcessWideID int32 = 0

type flexguardQNode struct {
	next    atomic.Pointer[flexguardQNode]
	waiting uint32
}

// Flexguard is `flexguard` (spec §4.C.12 sibling of hybridv2): the same
// MCS queue, with waiters spinning or parking on their own qnode (there
// is no separate wait-address word), but the blocking signal is the
// single process-wide preempt.Global() counter rather than one counter
// per lock. (H)'s timeslice-extension Begin is called once the caller
// holds the lock and End on release, so the extension covers the
// critical section; queue admission and the wait are not extended.
//
// Release preserves the exact wake-then-unextend ordering called out in
// spec §9 Open Question 4: a waiter is woken (if any) before End() is
// called, so the kernel's yield-requested bit, if set, is honored only
// after the handoff has already been made visible to the successor.
type Flexguard struct {
	tail     atomic.Pointer[flexguardQNode]
	arena    [handle.MaxHandles]flexguardQNode
	extender Extender
}

// NewFlexguard returns a free flexguard lock; pass extend.Page (via the
// Extender interface) or a no-op for platforms without component H.
func NewFlexguard(extender Extender) *Flexguard {
	if extender == nil {
		extender = noopExtender{}
	}
	return &Flexguard{extender: extender}
}

func (l *Flexguard) node(h handle.T) *flexguardQNode { return &l.arena[h.ID()] }

func (l *Flexguard) Acquire(h handle.T) {
	n := l.node(h)
	n.next.Store(nil)
	atomic.StoreUint32(&n.waiting, 1)

	prev := l.tail.Swap(n)
	if prev != nil {
		prev.next.Store(n)
		for atomic.LoadUint32(&n.waiting) == 1 {
			if preempt.Global().BlockingCount(flexguardProcessWideID) > 0 {
				park.Wait(&n.waiting, 1)
			} else {
				atomics.Relax()
			}
		}
	}
	l.extender.Begin()
}

func (l *Flexguard) TryAcquire(h handle.T) bool {
	n := l.node(h)
	n.next.Store(nil)
	atomic.StoreUint32(&n.waiting, 0)
	if !l.tail.CompareAndSwap(nil, n) {
		return false
	}
	l.extender.Begin()
	return true
}

func (l *Flexguard) Release(h handle.T) {
	n := l.node(h)
	if n.next.Load() == nil {
		if l.tail.CompareAndSwap(n, nil) {
			l.extender.End()
			return
		}
		for n.next.Load() == nil {
			atomics.Relax()
		}
	}
	succ := n.next.Load()
	atomic.StoreUint32(&succ.waiting, 0)
	park.Wake(&succ.waiting, 1)
	l.extender.End()
}
