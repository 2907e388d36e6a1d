package locks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dijkstracula/go-locks/handle"
)

func TestWeightForPriorityClampsRange(t *testing.T) {
	assert.Equal(t, prioToWeight[0], WeightForPriority(-100))
	assert.Equal(t, prioToWeight[39], WeightForPriority(100))
	assert.Equal(t, prioToWeight[20], WeightForPriority(0))
}

func TestUSCLBasicAcquireRelease(t *testing.T) {
	l := NewUSCL()
	h := handle.MustNew()
	l.Register(h, 0)
	l.Acquire(h)
	l.Release(h)
}

func TestUSCLMutualExclusion(t *testing.T) {
	l := NewUSCL()
	done := make(chan struct{})
	var counter int
	const goroutines = 6
	const iterations = 30

	finished := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		go func(prio int) {
			h := handle.MustNew()
			l.Register(h, prio)
			for j := 0; j < iterations; j++ {
				l.Acquire(h)
				counter++
				l.Release(h)
			}
			finished <- true
		}(i - 3)
	}
	go func() {
		for i := 0; i < goroutines; i++ {
			<-finished
		}
		close(done)
	}()

	<-done
	require.Equal(t, goroutines*iterations, counter)
}

func TestUSCLWaitSuspendsBanClock(t *testing.T) {
	l := NewUSCL()
	c := NewCond()
	h := handle.MustNew()
	l.Register(h, 0)

	l.Acquire(h)
	ti := l.info(h)
	ti.bannedUntil = 1 << 62 // simulate a long outstanding ban

	signalled := make(chan struct{})
	go func() {
		<-signalled
		h2 := handle.MustNew()
		l.Register(h2, 0)
		l.Acquire(h2)
		c.Signal()
		l.Release(h2)
	}()

	close(signalled)
	l.Wait(h, c) // releases h, blocks, is signalled, then reacquires h

	assert.Less(t, ti.bannedUntil, int64(1<<62), "Wait must reset the ban clock rather than carry it across the wait")
	l.Release(h)
}
