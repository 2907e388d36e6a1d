package locks

import (
	"github.com/dijkstracula/go-locks/atomics"
	"github.com/dijkstracula/go-locks/handle"
)

// Extender is the component-H hook (implemented by package extend) that
// MCSTAS's timeslice-extending variant uses to defer preemption around
// the short inner test-and-set spin.
type Extender interface {
	Begin()
	End()
}

type noopExtender struct{}

func (noopExtender) Begin() {}
func (noopExtender) End()   {}

// MCSTAS is MCS+TAS (spec §4.C.10): the MCS queue admits one contender
// at a time to a following test-and-set acquisition of an inner byte,
// limiting contention on the hot byte to the head of the queue.
type MCSTAS struct {
	mcs      *MCS
	inner    atomics.Flag
	extender Extender
}

// MCSTASOption configures an MCSTAS at construction.
type MCSTASOption func(*MCSTAS)

// WithExtender enables the timeslice-extending variant (spec §6's
// "MCS-extend" build option), wrapping the inner spin with Begin/End.
func WithExtender(e Extender) MCSTASOption {
	return func(l *MCSTAS) { l.extender = e }
}

// NewMCSTAS returns a free MCS+TAS lock; pass WithExtender for the
// extend-before-acquire variant.
func NewMCSTAS(opts ...MCSTASOption) *MCSTAS {
	l := &MCSTAS{mcs: NewMCS(), extender: noopExtender{}}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *MCSTAS) Acquire(h handle.T) {
	l.mcs.Acquire(h)
	l.extender.Begin()
	for l.inner.TestAndSet() != 0 {
		atomics.Relax()
	}
	l.extender.End()
}

func (l *MCSTAS) TryAcquire(h handle.T) bool {
	if !l.mcs.TryAcquire(h) {
		return false
	}
	if l.inner.TestAndSet() != 0 {
		l.mcs.Release(h)
		return false
	}
	return true
}

func (l *MCSTAS) Release(h handle.T) {
	l.inner.Clear()
	l.mcs.Release(h)
}
