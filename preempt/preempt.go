// Package preempt implements component G, the preemption-monitor
// interface: a per-lock blocking_count and a per-thread qnode region
// that an external kernel observer (out of scope; see SPEC_FULL.md) is
// expected to populate. The library reads blocking_count and
// holder_preempted, and writes blocking_count only through hybridv2's
// handoff path (IncrementBlockingCount/DecrementBlockingCount); it owns
// writes to its own per-thread running and locking_lock_id fields. A local, in-process fallback leaves every
// blocking_count at zero, degrading the hybrid locks to pure queue-based
// spinning, exactly as spec §4.G describes.
package preempt

import (
	"os"
	"reflect"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/dijkstracula/go-locks/handle"
)

// MaxLocks bounds the per-lock blocking_count array; lock IDs beyond
// this are not tracked (their blocking_count always reads zero).
const MaxLocks = 4096

// QNode is the per-thread record the observer classifies preemption
// against: running and locking_lock_id are library-owned; holder_preempted
// is observer-owned and library-read-only.
type QNode struct {
	Running         uint32
	LockingLockID   int32
	HolderPreempted uint32
}

// Table is the shared preemption-monitor state.
type Table struct {
	blockingCounts []uint64
	qnodes         []QNode
	mmap           []byte // non-nil when backed by a shared mapping
}

var global = Local()

// Global returns the single process-wide Table that `flexguard` locks
// share (as opposed to `hybridv2`'s one-counter-per-lock scheme); every
// flexguard instance reads lock ID 0 on it.
func Global() *Table { return global }

// Local returns a process-local Table whose blocking_count entries are
// never incremented by anything but this library's own test harnesses,
// matching the "no observer present" fallback.
func Local() *Table {
	return &Table{
		blockingCounts: make([]uint64, MaxLocks),
		qnodes:         make([]QNode, handle.MaxHandles),
	}
}

// Shared mmaps path (e.g. a file an external observer also maps) as the
// backing store for the blocking-count array, falling back to Local if
// the path does not exist — "if no observer is present... the fallback
// leaves blocking_count at zero" (spec §4.G).
func Shared(path string) (*Table, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return Local(), nil
		}
		return nil, err
	}
	defer f.Close()

	size := MaxLocks * 8
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	t := &Table{
		qnodes: make([]QNode, handle.MaxHandles),
		// The blocking-count array is aliased directly over the mmap'd
		// page so a separate external observer process, mapping the same
		// file, reads and writes the identical memory.
		blockingCounts: unsafe.Slice((*uint64)(unsafe.Pointer(&data[0])), MaxLocks),
		mmap:           data,
	}
	return t, nil
}

// Close unmaps the shared region, if any.
func (t *Table) Close() error {
	if t.mmap == nil {
		return nil
	}
	return unix.Munmap(t.mmap)
}

// BlockingCount reads the per-lock signal: zero means "no preempted
// holder/waiter observed", non-zero means "prefer parking".
func (t *Table) BlockingCount(lockID int32) uint64 {
	if lockID < 0 || int(lockID) >= len(t.blockingCounts) {
		return 0
	}
	return atomic.LoadUint64(&t.blockingCounts[lockID])
}

// IncrementBlockingCount is used by hybridv2's release path to bump the
// per-lock signal when a handed-off successor is observed not running.
func (t *Table) IncrementBlockingCount(lockID int32) {
	if lockID < 0 || int(lockID) >= len(t.blockingCounts) {
		return
	}
	atomic.AddUint64(&t.blockingCounts[lockID], 1)
}

// DecrementBlockingCount is used by the arriving successor to undo
// IncrementBlockingCount once it has actually run.
func (t *Table) DecrementBlockingCount(lockID int32) {
	if lockID < 0 || int(lockID) >= len(t.blockingCounts) {
		return
	}
	atomic.AddUint64(&t.blockingCounts[lockID], ^uint64(0))
}

func (t *Table) qnode(h handle.T) *QNode { return &t.qnodes[h.ID()] }

// MarkEnter records that h is attempting to acquire lockID, the
// lock_enter program point from spec §9's stable-symbol design note.
func (t *Table) MarkEnter(h handle.T, lockID int32) {
	n := t.qnode(h)
	atomic.StoreInt32(&n.LockingLockID, lockID)
	atomic.StoreUint32(&n.Running, 1)
	markEnter()
}

// MarkPostEnqueue marks the lock_post_enqueue program point, reached once
// h is linked into a wait queue.
func (t *Table) MarkPostEnqueue(h handle.T) { _ = h; markPostEnqueue() }

// MarkEnd marks the lock_end program point: h now holds the lock, or has
// given up trying.
func (t *Table) MarkEnd(h handle.T) {
	n := t.qnode(h)
	atomic.StoreInt32(&n.LockingLockID, -1)
	markEnd()
}

// HolderPreempted reports the observer-written holder_preempted flag for
// h; always false under Local().
func (t *Table) HolderPreempted(h handle.T) bool {
	return atomic.LoadUint32(&t.qnode(h).HolderPreempted) != 0
}

// IsRunning reports the library- or observer-written running flag for h.
func (t *Table) IsRunning(h handle.T) bool {
	return atomic.LoadUint32(&t.qnode(h).Running) != 0
}

//go:noinline
func markEnter() {}

//go:noinline
func markPostEnqueue() {}

//go:noinline
func markEnd() {}

// Addresses returns the resolved addresses of the three well-known
// program-point markers, for an external observer to resolve at
// startup, per spec §9's "stable function-boundary symbols" design note.
func Addresses() (enter, postEnqueue, end uintptr) {
	return funcAddr(markEnter), funcAddr(markPostEnqueue), funcAddr(markEnd)
}

func funcAddr(fn func()) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
