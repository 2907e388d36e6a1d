package locks

import (
	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
)

// TAS is the test-and-set spinlock (spec §4.C.2): acquire spins on
// test-and-set with cpu-relax between attempts; release clears the flag
// behind a compiler fence. No fairness whatsoever.
type TAS struct {
	flag atomics.Flag
}

// NewTAS returns a free TAS spinlock.
func NewTAS() *TAS { return &TAS{} }

func (l *TAS) Acquire(_ handle.T) {
	for l.flag.TestAndSet() != 0 {
		atomics.Relax()
	}
}

func (l *TAS) TryAcquire(_ handle.T) bool {
	return l.flag.TestAndSet() == 0
}

func (l *TAS) Release(_ handle.T) {
	l.flag.Clear()
}
