package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
)

// AtomicCLH is CLH (spec §4.C.8 variant) except head is a
// pointer-to-pointer kept in its own heap cell rather than embedded
// directly in the lock struct, so the head word can be shared by
// multiple lock "views" constructed over the same underlying queue.
type AtomicCLH struct {
	head *atomic.Pointer[clhQNode]
	mine [handle.MaxHandles]atomic.Pointer[clhQNode]
	pred [handle.MaxHandles]atomic.Pointer[clhQNode]
}

// NewAtomicCLH returns a free atomic-CLH lock.
func NewAtomicCLH() *AtomicCLH {
	sentinel := &clhQNode{}
	sentinel.done.Store(1)
	head := &atomic.Pointer[clhQNode]{}
	head.Store(sentinel)
	return &AtomicCLH{head: head}
}

func (l *AtomicCLH) myNode(h handle.T) *clhQNode {
	if n := l.mine[h.ID()].Load(); n != nil {
		return n
	}
	n := &clhQNode{}
	l.mine[h.ID()].Store(n)
	return n
}

func (l *AtomicCLH) Acquire(h handle.T) {
	n := l.myNode(h)
	n.done.Store(0)
	pred := l.head.Swap(n)
	for pred.done.Load() == 0 {
		atomics.Relax()
	}
	l.pred[h.ID()].Store(pred)
}

func (l *AtomicCLH) TryAcquire(h handle.T) bool {
	cur := l.head.Load()
	if cur.done.Load() != 1 {
		return false
	}
	n := l.myNode(h)
	n.done.Store(0)
	if l.head.CompareAndSwap(cur, n) {
		l.pred[h.ID()].Store(cur)
		return true
	}
	return false
}

func (l *AtomicCLH) Release(h handle.T) {
	n := l.mine[h.ID()].Load()
	n.done.Store(1)
	l.mine[h.ID()].Store(l.pred[h.ID()].Load())
}
