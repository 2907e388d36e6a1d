package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
)

// mcsQNode is a queue node owned by the thread it's indexed by, from
// enqueue until its successor signals it (spec §9 ownership note).
type mcsQNode struct {
	next    atomic.Pointer[mcsQNode]
	waiting atomic.Uint32
}

// MCS is the classic Mellor-Crummey-Scott queue lock (spec §4.C.6):
// strictly FIFO among enqueued waiters, each spinning only on its own
// qnode's waiting field rather than a shared cache line.
type MCS struct {
	tail  atomic.Pointer[mcsQNode]
	arena [handle.MaxHandles]mcsQNode
}

// NewMCS returns a free MCS lock.
func NewMCS() *MCS { return &MCS{} }

func (l *MCS) node(h handle.T) *mcsQNode { return &l.arena[h.ID()] }

func (l *MCS) Acquire(h handle.T) {
	n := l.node(h)
	n.next.Store(nil)
	n.waiting.Store(1)

	prev := l.tail.Swap(n)
	if prev == nil {
		n.waiting.Store(0)
		return
	}
	prev.next.Store(n)
	for n.waiting.Load() == 1 {
		atomics.Relax()
	}
}

func (l *MCS) TryAcquire(h handle.T) bool {
	n := l.node(h)
	n.next.Store(nil)
	n.waiting.Store(0)
	return l.tail.CompareAndSwap(nil, n)
}

// IsFree reports whether the lock currently has no owner, used by
// hybridlock.go to detect when this sub-lock has fully drained.
func (l *MCS) IsFree() bool { return l.tail.Load() == nil }

func (l *MCS) Release(h handle.T) {
	n := l.node(h)
	if n.next.Load() == nil {
		if l.tail.CompareAndSwap(n, nil) {
			return
		}
		for n.next.Load() == nil {
			atomics.Relax()
		}
	}
	n.next.Load().waiting.Store(0)
}
