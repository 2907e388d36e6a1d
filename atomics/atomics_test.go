package atomics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagTestAndSet(t *testing.T) {
	var f Flag
	require.Equal(t, uint32(0), f.TestAndSet(), "first TestAndSet should observe the flag clear")
	require.Equal(t, uint32(1), f.TestAndSet(), "second TestAndSet should observe the flag already set")
	assert.Equal(t, uint32(1), f.Load())

	f.Clear()
	assert.Equal(t, uint32(0), f.Load())
	require.Equal(t, uint32(0), f.TestAndSet())
}

func TestFlagMutualExclusion(t *testing.T) {
	var f Flag
	var wg sync.WaitGroup
	var counter int
	const goroutines = 32
	const iterations = 500

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				for f.TestAndSet() != 0 {
					Relax()
				}
				counter++
				f.Clear()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines*iterations, counter)
}

func TestReadCounterMonotonic(t *testing.T) {
	a := ReadCounter()
	b := ReadCounter()
	assert.LessOrEqual(t, a, b)
}

func TestRelaxNDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { RelaxN(10) })
}
