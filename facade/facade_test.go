package facade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dijkstracula/go-locks/handle"
	"github.com/dijkstracula/go-locks/locks"
)

var allAlgorithms = []Algorithm{
	TAS, Ticket, Futex, SpinThenPark, MCS, BlockingMCS, CLH, AtomicCLH,
	MCSTP, MCSTAS, MCSExtend, HybridLockMCS, HybridLockCLH, HybridLockTicket,
	HybridV2, Flexguard, USCL, PlatformMutex,
}

func TestNewConstructsEveryAlgorithm(t *testing.T) {
	for _, alg := range allAlgorithms {
		alg := alg
		t.Run(alg.String(), func(t *testing.T) {
			l := New(alg)
			require.NotNil(t, l)
			assert.Equal(t, alg, l.Algorithm())

			h := handle.MustNew()
			l.Acquire(h)
			l.Release(h)
			require.NoError(t, l.TryAcquire(h))
			l.Release(h)
		})
	}
}

func TestUnrecognizedAlgorithmFallsBackToPlatformMutex(t *testing.T) {
	l := New(Algorithm(9999))
	assert.Equal(t, PlatformMutex, l.Algorithm())
}

func TestTryAcquireReturnsErrBusy(t *testing.T) {
	l := New(TAS)
	h1 := handle.MustNew()
	h2 := handle.MustNew()

	require.NoError(t, l.TryAcquire(h1))
	err := l.TryAcquire(h2)
	assert.ErrorIs(t, err, locks.ErrBusy)
	l.Release(h1)
}

func TestCondSignalAcrossFacade(t *testing.T) {
	l := New(MCS)
	c := NewCond(l)
	woken := make(chan struct{}, 1)

	var g errgroup.Group
	g.Go(func() error {
		h := handle.MustNew()
		l.Acquire(h)
		c.Wait(h)
		woken <- struct{}{}
		l.Release(h)
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	c.Signal()

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("facade condvar Signal did not wake the waiter")
	}
	require.NoError(t, g.Wait())
}

func TestCondTimedWaitTimesOutAcrossFacade(t *testing.T) {
	l := New(TAS)
	c := NewCond(l)
	h := handle.MustNew()

	l.Acquire(h)
	timedOut := c.TimedWait(h, time.Now().Add(20*time.Millisecond))
	assert.True(t, timedOut)
	l.Release(h)
}

func TestUSCLConstructedThroughFacadeHonorsCondWaiter(t *testing.T) {
	l := New(USCL)
	c := NewCond(l)
	h := handle.MustNew()

	l.Acquire(h)
	timedOut := c.TimedWait(h, time.Now().Add(20*time.Millisecond))
	assert.True(t, timedOut)
	l.Release(h)
}

func TestWithPatienceAndMaxCSTimeOverrideMCSTP(t *testing.T) {
	l := New(MCSTP, WithPatience(5), WithMaxCSTime(100))
	require.NotNil(t, l)
	h := handle.MustNew()
	l.Acquire(h)
	l.Release(h)
}
