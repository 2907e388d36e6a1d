package locks

import (
	"sync/atomic"
	"time"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
	"github.com/dijkstracula/go-locks/park"
)

// prioToWeight is the standard nice-value-to-scheduling-weight table
// (priorities -20..19), the same values u-scl's weight lookup uses.
var prioToWeight = [40]int64{
	88761, 71755, 56483, 46273, 36291,
	29154, 23254, 18705, 14949, 11916,
	9548, 7620, 6100, 4904, 3906,
	3121, 2501, 1991, 1586, 1277,
	1024, 820, 655, 526, 423,
	335, 272, 215, 172, 137,
	110, 87, 70, 56, 45,
	36, 29, 23, 18, 15,
}

// WeightForPriority maps a nice-style priority in [-20, 19] to its
// scheduling weight, clamping out-of-range values to the table's ends.
func WeightForPriority(prio int) int64 {
	idx := prio + 20
	if idx < 0 {
		idx = 0
	} else if idx > 39 {
		idx = 39
	}
	return prioToWeight[idx]
}

const (
	usclInit usclState = iota
	usclNext
	usclRunnable
	usclRunning
)

type usclState uint32

type usclQNode struct {
	next  atomic.Pointer[usclQNode]
	state uint32
}

type usclThreadInfo struct {
	weight      int64
	bannedUntil int64
	csStart     int64
	registered  uint32
}

// DefaultSliceNanos is the ~2ms re-entry slice spec §4.C.13 describes.
const DefaultSliceNanos = 2_000_000

// sleepGranularityNanos is the ban-sleep chunk size (~8µs); the last
// residue under this threshold is spun instead of slept.
const sleepGranularityNanos = 8_000

// USCL is `u-scl`, the proportional-share fair lock (spec §4.C.13): a
// queue of per-thread qnodes with states INIT/NEXT/RUNNABLE/RUNNING,
// weighted by a nice-style priority, where each release computes a
// post-hoc ban interval proportional to (critical-section length ×
// total_weight / own_weight). While the last releaser's slice is still
// valid, that thread takes the lock without waiting out its ban if the
// lock is free (tail CAS from nil); if other threads are queued it waits
// out its ban and enqueues at the tail like any other thread.
type USCL struct {
	tail        atomic.Pointer[usclQNode]
	arena       [handle.MaxHandles]usclQNode
	threadInfo  [handle.MaxHandles]usclThreadInfo
	totalWeight atomic.Int64

	sliceOwner    atomic.Int64 // handle id + 1; 0 means no slice outstanding
	sliceDeadline atomic.Int64
}

// NewUSCL returns a free u-scl lock.
func NewUSCL() *USCL { return &USCL{} }

func (l *USCL) node(h handle.T) *usclQNode { return &l.arena[h.ID()] }
func (l *USCL) info(h handle.T) *usclThreadInfo { return &l.threadInfo[h.ID()] }

// Register gives h an explicit scheduling weight before its first
// acquire; threads that never call Register get WeightForPriority(0).
func (l *USCL) Register(h handle.T, priority int) {
	ti := l.info(h)
	if atomic.CompareAndSwapUint32(&ti.registered, 0, 1) {
		ti.weight = WeightForPriority(priority)
		l.totalWeight.Add(ti.weight)
	}
}

func (l *USCL) ensure(h handle.T) *usclThreadInfo {
	ti := l.info(h)
	if atomic.CompareAndSwapUint32(&ti.registered, 0, 1) {
		ti.weight = WeightForPriority(0)
		l.totalWeight.Add(ti.weight)
	}
	return ti
}

func sliceKey(h handle.T) int64 { return int64(h.ID()) + 1 }

func (l *USCL) Acquire(h handle.T) {
	ti := l.ensure(h)
	now := atomics.ReadCounter()

	if l.sliceOwner.Load() == sliceKey(h) && now < l.sliceDeadline.Load() {
		n := l.node(h)
		n.next.Store(nil)
		if l.tail.CompareAndSwap(nil, n) {
			atomic.StoreInt64(&ti.csStart, atomics.ReadCounter())
			return
		}
	}

	for {
		now = atomics.ReadCounter()
		banned := atomic.LoadInt64(&ti.bannedUntil)
		if now >= banned {
			break
		}
		remaining := banned - now
		if remaining > sleepGranularityNanos {
			time.Sleep(sleepGranularityNanos * time.Nanosecond)
		} else {
			atomics.Relax()
		}
	}

	n := l.node(h)
	n.next.Store(nil)
	atomic.StoreUint32(&n.state, uint32(usclNext))

	prev := l.tail.Swap(n)
	if prev == nil {
		atomic.StoreUint32(&n.state, uint32(usclRunning))
	} else {
		atomic.StoreUint32(&n.state, uint32(usclRunnable))
		prev.next.Store(n)
		for {
			s := atomic.LoadUint32(&n.state)
			if s == uint32(usclRunning) {
				break
			}
			park.WaitTimeout(&n.state, s, DefaultSliceNanos*time.Nanosecond)
		}
	}
	atomic.StoreInt64(&ti.csStart, atomics.ReadCounter())
}

func (l *USCL) TryAcquire(h handle.T) bool {
	ti := l.ensure(h)
	n := l.node(h)
	n.next.Store(nil)
	atomic.StoreUint32(&n.state, uint32(usclRunning))
	if l.tail.CompareAndSwap(nil, n) {
		atomic.StoreInt64(&ti.csStart, atomics.ReadCounter())
		return true
	}
	return false
}

func (l *USCL) Release(h handle.T) {
	ti := l.info(h)
	n := l.node(h)
	now := atomics.ReadCounter()

	csLen := now - atomic.LoadInt64(&ti.csStart)
	total := l.totalWeight.Load()
	own := ti.weight
	if own <= 0 {
		own = 1
	}
	atomic.StoreInt64(&ti.bannedUntil, now+csLen*total/own)

	l.sliceOwner.Store(sliceKey(h))
	l.sliceDeadline.Store(now + DefaultSliceNanos)

	if n.next.Load() == nil {
		if l.tail.CompareAndSwap(n, nil) {
			return
		}
		for n.next.Load() == nil {
			atomics.Relax()
		}
	}
	succ := n.next.Load()
	atomic.StoreUint32(&succ.state, uint32(usclRunning))
	park.Wake(&succ.state, 1)
}

// Wait parks h on c, suspending its ban clock across the wait since
// spec §4.C.13 states condvar waiters do not carry the ban across wait.
func (l *USCL) Wait(h handle.T, c *Cond) {
	ti := l.ensure(h)
	atomic.StoreInt64(&ti.bannedUntil, atomics.ReadCounter())
	c.Wait(h, l)
}

// TimedWait is Wait with an absolute deadline.
func (l *USCL) TimedWait(h handle.T, c *Cond, deadline time.Time) bool {
	ti := l.ensure(h)
	atomic.StoreInt64(&ti.bannedUntil, atomics.ReadCounter())
	return c.TimedWait(h, l, deadline)
}
