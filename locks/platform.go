package locks

import (
	"sync"
	"time"

	"github.com/dijkstracula/go-locks/handle"
)

// Platform is `platform-mutex` (spec §6): a thin wrapper over the host
// threading library's own mutex, used both as the baseline every other
// algorithm is benchmarked against and as the facade's fallback when an
// unrecognized Algorithm tag is supplied. In this re-implementation "the
// host threading library" is the Go runtime's own sync.Mutex.
type Platform struct {
	mu sync.Mutex
}

// NewPlatform returns a free platform-mutex lock.
func NewPlatform() *Platform { return &Platform{} }

func (l *Platform) Acquire(_ handle.T)         { l.mu.Lock() }
func (l *Platform) TryAcquire(_ handle.T) bool { return l.mu.TryLock() }
func (l *Platform) Release(_ handle.T)         { l.mu.Unlock() }

// platformCond is a condvar built on a sync.Cond over Platform's own
// mutex, obtained through Platform.NewCond. The facade does not use it:
// facade.Cond drives Platform through the ticket/target pattern in
// cvar.go, as it does every other algorithm.
type platformCond struct {
	cond *sync.Cond
}

// NewCond returns a condvar bound to l's underlying mutex.
func (l *Platform) NewCond() *platformCond { return &platformCond{cond: sync.NewCond(&l.mu)} }

func (c *platformCond) Wait()      { c.cond.Wait() }
func (c *platformCond) Signal()    { c.cond.Signal() }
func (c *platformCond) Broadcast() { c.cond.Broadcast() }

// TimedWait emulates a deadline over sync.Cond, which has no native one:
// a timer broadcasts at the deadline so every waiter wakes and can
// re-check whether it was signaled or merely timed out.
func (c *platformCond) TimedWait(deadline time.Time) (timedOut bool) {
	timer := time.AfterFunc(time.Until(deadline), c.cond.Broadcast)
	defer timer.Stop()
	c.cond.Wait()
	return !time.Now().Before(deadline)
}
