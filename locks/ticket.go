package locks

import (
	"sync/atomic"

	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
)

// Ticket is the ticket lock with proportional back-off (spec §4.C.3):
// acquire atomically increments tail to obtain a ticket, then spins
// reading head with a pause proportional to the distance remaining.
// head and tail are kept on separate cache lines since they are written
// by disjoint sets of threads.
type Ticket struct {
	tail atomic.Uint32
	_    atomics.CacheLinePad
	head atomic.Uint32
}

// NewTicket returns a free ticket lock.
func NewTicket() *Ticket { return &Ticket{} }

// baseBackoffCycles is the per-unit-of-distance relax count used once a
// waiter is more than one ticket away from being served.
const baseBackoffCycles = 4

func (l *Ticket) Acquire(_ handle.T) {
	my := l.tail.Add(1) - 1
	for {
		head := l.head.Load()
		if head == my {
			return
		}
		distance := my - head
		if distance <= 1 {
			atomics.Relax()
		} else {
			atomics.RelaxN(int(distance) * baseBackoffCycles)
		}
	}
}

func (l *Ticket) TryAcquire(_ handle.T) bool {
	head := l.head.Load()
	return l.tail.CompareAndSwap(head, head+1)
}

// IsFree reports whether every issued ticket has been served, used by
// hybridlock.go to detect when this sub-lock has fully drained.
func (l *Ticket) IsFree() bool { return l.head.Load() == l.tail.Load() }

func (l *Ticket) Release(_ handle.T) {
	atomics.CompilerFence()
	l.head.Add(1)
}
