// Package atomics holds the test-and-set flag, cpu-relax, fence markers,
// counter read and cache-line padding shared by the lock algorithms in
// locks. It wraps only a 32-bit compare-and-swap; the algorithms call
// sync/atomic directly for exchange, fetch-add and the other widths.
package atomics

import (
	"runtime"
	"sync/atomic"

	_ "unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLinePad separates hot fields that would otherwise false-share a
// cache line, e.g. a ticket lock's head and tail counters.
type CacheLinePad = cpu.CacheLinePad

// Flag is a one-word test-and-set byte. Go has no single-byte atomic, so
// the word is a uint32; only 0/1 are ever stored into it.
type Flag struct {
	v atomic.Uint32
}

const (
	flagClear = 0
	flagSet   = 1
)

// TestAndSet sets the flag and reports its previous value.
func (f *Flag) TestAndSet() (prev uint32) { return f.v.Swap(flagSet) }

// Clear releases the flag with a compiler fence, matching the "release
// sets byte to 0 with a compiler fence" contract for the TAS spinlock.
func (f *Flag) Clear() { CompilerFence(); f.v.Store(flagClear) }

// Load reads the flag's current value.
func (f *Flag) Load() uint32 { return f.v.Load() }

// CompareAndSwapUint32 is a thin wrapper over atomic.Uint32's
// CompareAndSwap. The algorithms in locks do not call it; they use
// sync/atomic directly.
func CompareAndSwapUint32(addr *atomic.Uint32, old, new uint32) bool {
	return addr.CompareAndSwap(old, new)
}

// Fence is a full memory barrier. The Go memory model gives every atomic
// operation sequential-consistency already, so this is a documentation
// marker rather than an emitted instruction; it exists so algorithms
// transliterated from the C source keep their fence call sites visible.
func Fence() {}

// CompilerFence prevents the Go compiler from reordering surrounding
// non-atomic memory operations across this point. Like Fence, it is a
// no-op given Go's atomics already impose the necessary ordering; kept
// as a named call site for parity with the source algorithms' explicit
// compiler_fence() calls.
func CompilerFence() {}

// Relax is the cpu-relax / spin-hint primitive: a short, low-power pause
// an algorithm issues between unsuccessful lock-acquisition attempts.
// It reuses the two linknames the Go runtime itself uses to implement
// sync.Mutex's active-spin phase, which keeps the spin GC-safe and lets
// the scheduler reclaim the P when spinning stops being productive.
func Relax() {
	if !runtimeCanSpin(1) {
		runtime.Gosched()
		return
	}
	safePoint()
	runtimeDoSpin()
}

// RelaxN issues n successive Relax calls, used by the ticket lock's
// distance-proportional back-off.
func RelaxN(n int) {
	for i := 0; i < n; i++ {
		Relax()
	}
}

// ReadCounter returns a monotonically increasing count usable as a rough
// substitute for a cycle-accurate timestamp-counter read. A true RDTSC
// read is not reachable from portable Go without cgo; algorithms that
// only need relative ordering and approximate elapsed-time bounds
// (MCS-TP's stall detection, u-scl's ban arithmetic) use this instead.
func ReadCounter() int64 { return runtimeNanotime() }

//go:noinline
func safePoint() { safePoint2() }

//go:noinline
func safePoint2() {}

//go:linkname runtimeDoSpin sync.runtime_doSpin
func runtimeDoSpin()

//go:linkname runtimeCanSpin sync.runtime_canSpin
func runtimeCanSpin(i int) bool

//go:linkname runtimeNanotime runtime.nanotime
func runtimeNanotime() int64
