// Package interpose implements component F, the interposition shim: a
// set of drop-in mutex, read-write-mutex and condvar types that embed a
// small lazily-initialized descriptor instead of the platform's native
// primitive, routing every lock/unlock/wait call through the uniform
// facade. A real symbol-interposing shim resolves next-in-chain libc
// entry points at load time and rewrites an opaque struct in place;
// since Go exposes no such seam, these types are meant to be used
// wherever application code would otherwise declare a platform mutex,
// which gets the same "transparent drop-in" property spec §4.F asks
// for without requiring dynamic symbol resolution.
package interpose

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dijkstracula/go-locks/facade"
	"github.com/dijkstracula/go-locks/handle"
)

const (
	statusUninitialized uint32 = iota
	statusInitializing
	statusInitialized
)

// ErrTimedNotSupported is returned by the timed lock/rwlock entry
// points, which spec §4.F and §6 both call out as rejected at runtime.
var ErrTimedNotSupported = errors.New("interpose: timed locks not supported")

var defaultAlgorithm atomic.Value

func init() { defaultAlgorithm.Store(facade.PlatformMutex) }

// SetDefault changes the algorithm newly-initialized Mutex and RWMutex
// values construct on first use. Spinlock always defaults to TAS
// regardless of SetDefault, since it has its own entry point family in
// spec §4.F ("spinlocks and rwlocks share the same descriptor layout"
// does not imply they share a default algorithm).
func SetDefault(alg facade.Algorithm) { defaultAlgorithm.Store(alg) }

func currentDefault() facade.Algorithm { return defaultAlgorithm.Load().(facade.Algorithm) }

// descriptor is the embedded per-lock record spec §4.F describes: a
// status byte plus a pointer to the heap-allocated lock structure. The
// "must fit strictly inside the platform's opaque struct" sizing
// contract has no analogue here since there is no foreign opaque
// struct to fit inside of — the descriptor simply is the type's entire
// representation.
type descriptor struct {
	status uint32
	initMu sync.Mutex
	lock   *facade.Lock
}

// ensure ties statusUninitialized/statusInitializing/statusInitialized
// to a double-checked lock around facade.New, so concurrent first
// callers race to the initMu but only one of them actually constructs
// the lock (spec §4.F "double-checked-locked exactly-once
// initialization").
func (d *descriptor) ensure(defaultAlg facade.Algorithm) *facade.Lock {
	if atomic.LoadUint32(&d.status) == statusInitialized {
		return d.lock
	}
	d.initMu.Lock()
	defer d.initMu.Unlock()
	if atomic.LoadUint32(&d.status) == statusInitialized {
		return d.lock
	}
	atomic.StoreUint32(&d.status, statusInitializing)
	d.lock = facade.New(defaultAlg)
	atomic.StoreUint32(&d.status, statusInitialized)
	return d.lock
}

// reinit forces re-initialization with alg, as an explicit Init call
// does per spec §4.F, discarding whatever lock previously backed d.
func (d *descriptor) reinit(alg facade.Algorithm) {
	d.initMu.Lock()
	defer d.initMu.Unlock()
	atomic.StoreUint32(&d.status, statusInitializing)
	d.lock = facade.New(alg)
	atomic.StoreUint32(&d.status, statusInitialized)
}

// Mutex is the interposed replacement for the platform mutex entry
// points (init/destroy/lock/trylock/unlock). The zero value is usable
// directly: its first Lock/TryLock/Unlock call lazily constructs a
// facade.Lock using whatever SetDefault configured at that moment.
type Mutex struct {
	desc descriptor
}

// Init forces (re-)initialization of m to use alg, bypassing the
// package-wide default.
func (m *Mutex) Init(alg facade.Algorithm) { m.desc.reinit(alg) }

// Lock blocks until the caller holds m.
func (m *Mutex) Lock(h handle.T) { m.desc.ensure(currentDefault()).Acquire(h) }

// TryLock reports whether m was free and is now held by the caller.
func (m *Mutex) TryLock(h handle.T) bool {
	return m.desc.ensure(currentDefault()).TryAcquire(h) == nil
}

// TimedLock always returns ErrTimedNotSupported; the timed mutex
// variant is rejected at runtime per spec §6.
func (m *Mutex) TimedLock(h handle.T, deadline time.Time) error {
	return ErrTimedNotSupported
}

// Unlock releases m.
func (m *Mutex) Unlock(h handle.T) { m.desc.ensure(currentDefault()).Release(h) }

// Destroy tears down whatever algorithm-specific state m's lock owns.
func (m *Mutex) Destroy() { m.desc.ensure(currentDefault()).Destroy() }

// Spinlock is the interposed replacement for the platform spinlock
// entry points. It shares Mutex's descriptor layout (spec §4.F) but
// its implicit default, absent an explicit Init, is always TAS.
type Spinlock struct {
	desc descriptor
}

func (l *Spinlock) Init(alg facade.Algorithm) { l.desc.reinit(alg) }
func (l *Spinlock) Lock(h handle.T)           { l.desc.ensure(facade.TAS).Acquire(h) }
func (l *Spinlock) TryLock(h handle.T) bool {
	return l.desc.ensure(facade.TAS).TryAcquire(h) == nil
}
func (l *Spinlock) Unlock(h handle.T) { l.desc.ensure(facade.TAS).Release(h) }
func (l *Spinlock) Destroy()          { l.desc.ensure(facade.TAS).Destroy() }

// RWMutex is the interposed replacement for the platform rwlock entry
// points. Per spec §4.F, read-lock and write-lock both map to exclusive
// acquisition of the same underlying lock; there is no separate reader
// fast path.
type RWMutex struct {
	m Mutex
}

func (l *RWMutex) Init(alg facade.Algorithm) { l.m.Init(alg) }
func (l *RWMutex) RLock(h handle.T)          { l.m.Lock(h) }
func (l *RWMutex) RUnlock(h handle.T)        { l.m.Unlock(h) }
func (l *RWMutex) Lock(h handle.T)           { l.m.Lock(h) }
func (l *RWMutex) Unlock(h handle.T)         { l.m.Unlock(h) }
func (l *RWMutex) TryRLock(h handle.T) bool  { return l.m.TryLock(h) }
func (l *RWMutex) TryLock(h handle.T) bool   { return l.m.TryLock(h) }

// TimedRLock and TimedLock both always return ErrTimedNotSupported.
func (l *RWMutex) TimedRLock(h handle.T, deadline time.Time) error { return ErrTimedNotSupported }
func (l *RWMutex) TimedLock(h handle.T, deadline time.Time) error  { return ErrTimedNotSupported }
func (l *RWMutex) Destroy()                                        { l.m.Destroy() }

// Cond is the interposed replacement for the platform condvar entry
// points, bound to the Mutex it was constructed against exactly as
// pthread_cond_init binds a condvar to a mutex.
type Cond struct {
	mu   *Mutex
	desc descriptor
	cond *facade.Cond
}

// NewCond returns a condvar for use with mu.
func NewCond(mu *Mutex) *Cond { return &Cond{mu: mu} }

func (c *Cond) ensure() *facade.Cond {
	if atomic.LoadUint32(&c.desc.status) == statusInitialized {
		return c.cond
	}
	c.desc.initMu.Lock()
	defer c.desc.initMu.Unlock()
	if atomic.LoadUint32(&c.desc.status) == statusInitialized {
		return c.cond
	}
	atomic.StoreUint32(&c.desc.status, statusInitializing)
	c.cond = facade.NewCond(c.mu.desc.ensure(currentDefault()))
	atomic.StoreUint32(&c.desc.status, statusInitialized)
	return c.cond
}

// Wait atomically releases c's mutex and blocks until Signal or
// Broadcast, then reacquires the mutex.
func (c *Cond) Wait(h handle.T) { c.ensure().Wait(h) }

// TimedWait is Wait with an absolute deadline.
func (c *Cond) TimedWait(h handle.T, deadline time.Time) (timedOut bool) {
	return c.ensure().TimedWait(h, deadline)
}

// Signal wakes at most one waiter.
func (c *Cond) Signal() { c.ensure().Signal() }

// Broadcast wakes every waiter enqueued so far.
func (c *Cond) Broadcast() { c.ensure().Broadcast() }

// Destroy is a no-op; condvars own no independent heap state beyond the
// lock they wait on.
func (c *Cond) Destroy() {}

// Go intercepts thread creation (spec §4.F "thread-create is
// intercepted so the new thread receives a unique, dense thread ID at
// the earliest possible point"): it allocates fn's handle.T before fn
// starts running, rather than leaving fn to call handle.New() itself
// on first lock use.
func Go(fn func(h handle.T)) {
	go func() {
		fn(handle.MustNew())
	}()
}
