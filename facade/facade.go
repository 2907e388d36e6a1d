// Package facade presents the uniform lock façade (component D):
// one Lock type and one Cond type whose representation is determined
// by an Algorithm selected at construction, modeled as a closed tagged
// variant switched over once rather than a runtime plugin registry
// (spec §9 "variant-per-algorithm selection").
package facade

import (
	"log"
	"time"

	"github.com/dijkstracula/go-locks/extend"
	"github.com/dijkstracula/go-locks/handle"
	"github.com/dijkstracula/go-locks/locks"
	"github.com/dijkstracula/go-locks/preempt"
)

// Algorithm is the closed set of recognized build-time selections
// (spec §6).
type Algorithm int

const (
	TAS Algorithm = iota
	Ticket
	Futex
	SpinThenPark
	MCS
	BlockingMCS
	CLH
	AtomicCLH
	MCSTP
	MCSTAS
	MCSExtend
	HybridLockMCS
	HybridLockCLH
	HybridLockTicket
	HybridV2
	Flexguard
	USCL
	PlatformMutex
)

var names = map[Algorithm]string{
	TAS: "TAS-spin", Ticket: "ticket", Futex: "futex", SpinThenPark: "spin-then-park",
	MCS: "MCS", BlockingMCS: "blocking-MCS", CLH: "CLH", AtomicCLH: "atomic-CLH",
	MCSTP: "MCS-TP", MCSTAS: "MCS+TAS", MCSExtend: "MCS-extend",
	HybridLockMCS: "hybridlock-MCS", HybridLockCLH: "hybridlock-CLH", HybridLockTicket: "hybridlock-ticket",
	HybridV2: "hybridv2-MCS", Flexguard: "flexguard-MCS", USCL: "u-scl", PlatformMutex: "platform-mutex",
}

func (a Algorithm) String() string {
	if s, ok := names[a]; ok {
		return s
	}
	return "unknown"
}

// ErrResourceExhausted mirrors the fatal error kind from spec §7 for the
// thread-ID counter exceeding its build-time maximum; handle.New itself
// detects and returns it, this is just a re-export so callers never need
// to import package handle directly to recognize it.
//
// There is no BuildMismatch kind here: spec §7 defines it as the
// embedded interposition descriptor exceeding the platform's opaque
// mutex-object size, and (per DESIGN.md's interpose ledger entry) this
// translation's descriptor is never overlaid onto a foreign opaque
// struct — interpose.Mutex/Spinlock/RWMutex/Cond simply are their
// descriptor, so the mismatch this error kind names cannot occur here.
var ErrResourceExhausted = handle.ErrResourceExhausted

// Lock is the uniform front-end type; its actual representation is
// whichever locks.Locker New selected.
type Lock struct {
	alg     Algorithm
	locker  locks.Locker
	destroy func()
}

// Option configures a Lock at construction time.
type Option func(*options)

type options struct {
	extender      locks.Extender
	preemptTable  *preempt.Table
	spinLimit     int
	patience      int
	maxCSTime     int64
}

func defaultOptions() *options {
	return &options{
		preemptTable: preempt.Local(),
		spinLimit:    locks.DefaultSpinLimit,
		patience:     locks.DefaultPatience,
		maxCSTime:    locks.DefaultMaxCSTime,
	}
}

// WithExtender wires a component-H Extender (e.g. extend.Open's Page)
// into algorithms that use one (MCS+TAS-extend, flexguard).
func WithExtender(e locks.Extender) Option { return func(o *options) { o.extender = e } }

// WithPreemptTable wires a component-G preempt.Table into algorithms
// that use one (hybridv2); defaults to preempt.Local().
func WithPreemptTable(t *preempt.Table) Option { return func(o *options) { o.preemptTable = t } }

// WithSpinLimit overrides spin-then-park's spin budget before parking.
func WithSpinLimit(n int) Option { return func(o *options) { o.spinLimit = n } }

// WithPatience overrides MCS-TP's per-waiter patience (spec §9 Open
// Question 3: these are instance parameters, not global constants).
func WithPatience(n int) Option { return func(o *options) { o.patience = n } }

// WithMaxCSTime overrides MCS-TP's stalled-holder detection threshold.
func WithMaxCSTime(n int64) Option { return func(o *options) { o.maxCSTime = n } }

// New constructs a Lock implementing alg. Unrecognized tags fall back to
// PlatformMutex rather than erroring, since the façade's algorithm set
// is closed and exhaustive over this package's own enum.
func New(alg Algorithm, opts ...Option) *Lock {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	l := &Lock{alg: alg}
	switch alg {
	case TAS:
		l.locker = locks.NewTAS()
	case Ticket:
		l.locker = locks.NewTicket()
	case Futex:
		l.locker = locks.NewFutex()
	case SpinThenPark:
		sp := locks.NewSpinPark()
		sp.SpinLimit = o.spinLimit
		l.locker = sp
	case MCS:
		l.locker = locks.NewMCS()
	case BlockingMCS:
		l.locker = locks.NewBlockingMCS()
	case CLH:
		l.locker = locks.NewCLH()
	case AtomicCLH:
		l.locker = locks.NewAtomicCLH()
	case MCSTP:
		mtp := locks.NewMCSTP()
		mtp.Patience = o.patience
		mtp.MaxCSTime = o.maxCSTime
		l.locker = mtp
	case MCSTAS:
		l.locker = locks.NewMCSTAS()
	case MCSExtend:
		extender := o.extender
		if extender == nil {
			extender = extend.Local()
		}
		l.locker = locks.NewMCSTAS(locks.WithExtender(extender))
	case HybridLockMCS:
		l.locker = locks.NewHybridLockMCS()
	case HybridLockCLH:
		l.locker = locks.NewHybridLockCLH()
	case HybridLockTicket:
		l.locker = locks.NewHybridLockTicket()
	case HybridV2:
		l.locker = locks.NewHybridV2(o.preemptTable)
	case Flexguard:
		extender := o.extender
		if extender == nil {
			extender = extend.Local()
		}
		l.locker = locks.NewFlexguard(extender)
	case USCL:
		l.locker = locks.NewUSCL()
	case PlatformMutex:
		l.locker = locks.NewPlatform()
	default:
		log.Printf("facade: unrecognized algorithm %v, falling back to platform-mutex", alg)
		l.alg = PlatformMutex
		l.locker = locks.NewPlatform()
	}

	if d, ok := l.locker.(locks.Destroyer); ok {
		l.destroy = d.Destroy
	}
	return l
}

// Algorithm reports which algorithm backs l.
func (l *Lock) Algorithm() Algorithm { return l.alg }

// Acquire blocks until h holds l.
func (l *Lock) Acquire(h handle.T) { l.locker.Acquire(h) }

// TryAcquire returns ErrBusy if l was already held.
func (l *Lock) TryAcquire(h handle.T) error {
	if l.locker.TryAcquire(h) {
		return nil
	}
	return locks.ErrBusy
}

// Release releases l, which must be held by h.
func (l *Lock) Release(h handle.T) { l.locker.Release(h) }

// Destroy tears down any heap-allocated state l's algorithm owns; a
// no-op for algorithms with no such state.
func (l *Lock) Destroy() {
	if l.destroy != nil {
		l.destroy()
	}
}

// Cond is the uniform condition-variable type (component D + E),
// carrying both the generic ticket/target pattern and a reference to the
// lock it was created against so it can dispatch to that algorithm's
// CondWaiter override (uscl) when present.
type Cond struct {
	lock *Lock
	c    *locks.Cond
}

// NewCond creates a condvar for use with l. Per spec §4.D, algorithms
// that cannot support condvars would report Unsupported deterministically;
// every algorithm in this implementation works with the generic
// ticket/target condvar, so NewCond never fails.
func NewCond(l *Lock) *Cond { return &Cond{lock: l, c: locks.NewCond()} }

// Wait atomically releases the lock and blocks until Signal/Broadcast.
func (c *Cond) Wait(h handle.T) {
	if w, ok := c.lock.locker.(locks.CondWaiter); ok {
		w.Wait(h, c.c)
		return
	}
	c.c.Wait(h, c.lock.locker)
}

// TimedWait is Wait with an absolute deadline.
func (c *Cond) TimedWait(h handle.T, deadline time.Time) (timedOut bool) {
	if w, ok := c.lock.locker.(locks.CondWaiter); ok {
		return w.TimedWait(h, c.c, deadline)
	}
	return c.c.TimedWait(h, c.lock.locker, deadline)
}

// Signal wakes at most one waiter.
func (c *Cond) Signal() { c.c.Signal() }

// Broadcast wakes every waiter enqueued so far.
func (c *Cond) Broadcast() { c.c.Broadcast() }
