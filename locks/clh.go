package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
)

type clhQNode struct {
	done atomic.Uint32
}

// CLH is the Craig-Landin-Hagersten queue lock (spec §4.C.8). Each
// thread owns a qnode that is swapped atomically into head; the
// returned predecessor is spun on, and on release ownership of the
// predecessor's (now-recycled) node transfers to the releasing thread.
type CLH struct {
	head atomic.Pointer[clhQNode]
	mine [handle.MaxHandles]atomic.Pointer[clhQNode]
	pred [handle.MaxHandles]atomic.Pointer[clhQNode]
}

// NewCLH returns a free CLH lock with a done=1 sentinel qnode at head.
func NewCLH() *CLH {
	sentinel := &clhQNode{}
	sentinel.done.Store(1)
	l := &CLH{}
	l.head.Store(sentinel)
	return l
}

func (l *CLH) myNode(h handle.T) *clhQNode {
	if n := l.mine[h.ID()].Load(); n != nil {
		return n
	}
	n := &clhQNode{}
	l.mine[h.ID()].Store(n)
	return n
}

func (l *CLH) Acquire(h handle.T) {
	n := l.myNode(h)
	n.done.Store(0)
	pred := l.head.Swap(n)
	for pred.done.Load() == 0 {
		atomics.Relax()
	}
	l.pred[h.ID()].Store(pred)
}

func (l *CLH) TryAcquire(h handle.T) bool {
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

// IsFree reports whether the queue is empty, used by hybridlock.go to
// detect when this sub-lock has fully drained.
func (l *CLH) IsFree() bool { return l.head.Load().done.Load() == 1 }

func (l *CLH) Release(h handle.T) {
	n := l.mine[h.ID()].Load()
	n.done.Store(1)
	// The just-released qnode is implicitly recycled by the next owner;
	// this thread adopts its own predecessor's node for its next cycle.
	l.mine[h.ID()].Store(l.pred[h.ID()].Load())
}
