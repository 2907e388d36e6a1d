package locks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dijkstracula/go-locks/handle"
)

func TestHybridLockBasicAcquireRelease(t *testing.T) {
	l := NewHybridLockMCS()
	h := handle.MustNew()
	l.Acquire(h)
	l.Release(h)
	assert.True(t, l.TryAcquire(h))
	l.Release(h)
}

// TestHybridLockSwitchTakesEffectForNextArrival exercises the
// documented simplification of Open Question 2: a switch request never
// preempts an acquirer already inside its sub-lock, but does govern the
// very next acquisition.
func TestHybridLockSwitchTakesEffectForNextArrival(t *testing.T) {
	l := NewHybridLockMCS()
	h := handle.MustNew()

	l.Acquire(h)
	l.RequestSwitchToPark()
	l.Release(h)

	s := extractHybridCurrent(l.state)
	assert.Equal(t, hybridFutex, s, "switch requested mid-hold should be visible once released")

	l.Acquire(h)
	l.Release(h)
}

func TestHybridLockMutualExclusionAcrossSwitch(t *testing.T) {
	l := NewHybridLockCLH()
	done := make(chan struct{})
	var counter int

	go func() {
		h := handle.MustNew()
		for i := 0; i < 200; i++ {
			l.Acquire(h)
			counter++
			if i%37 == 0 {
				l.RequestSwitchToPark()
			} else if i%53 == 0 {
				l.RequestSwitchToSpin()
			}
			l.Release(h)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hybridlock deadlocked across algorithm switches")
	}
	require.Equal(t, 200, counter)
}

func TestHybridLockTryAcquireFailsWhenHeld(t *testing.T) {
	l := NewHybridLockTicket()
	h1 := handle.MustNew()
	h2 := handle.MustNew()

	l.Acquire(h1)
	assert.False(t, l.TryAcquire(h2))
	l.Release(h1)
	assert.True(t, l.TryAcquire(h2))
	l.Release(h2)
}
