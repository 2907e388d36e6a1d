package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
	"github.com/dijkstracula/go-locks/park"
)

// DefaultSpinLimit is the build-time spin budget spec §4.C.5 sets to
// ~2700 attempts before a spin-then-park acquirer falls through to
// parking.
const DefaultSpinLimit = 2700

// SpinPark is the spin-then-park lock (spec §4.C.5): same state word as
// Futex, but acquire first spins up to SpinLimit times before parking.
type SpinPark struct {
	state     uint32
	SpinLimit int
}

// NewSpinPark returns a free spin-then-park lock with the default spin
// budget; override via the SpinLimit field after construction.
func NewSpinPark() *SpinPark { return &SpinPark{SpinLimit: DefaultSpinLimit} }

func (l *SpinPark) Acquire(_ handle.T) {
	for i := 0; i < l.SpinLimit; i++ {
		if atomic.CompareAndSwapUint32(&l.state, 0, 1) {
			return
		}
		atomics.Relax()
	}

	if atomic.LoadUint32(&l.state) != 2 {
		atomic.SwapUint32(&l.state, 2)
	}
	for atomic.SwapUint32(&l.state, 2) != 0 {
		park.Wait(&l.state, 2)
	}
}

func (l *SpinPark) TryAcquire(_ handle.T) bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

func (l *SpinPark) Release(_ handle.T) {
	if new := atomic.AddUint32(&l.state, ^uint32(0)); new != 0 {
		atomic.StoreUint32(&l.state, 0)
		park.Wake(&l.state, 1)
	}
}
