package extend

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalBeginEndRoundTrips(t *testing.T) {
	p := Local()
	p.Begin()
	assert.Equal(t, uint64(bitExtending), atomic.LoadUint64(p.word)&bitExtending)
	p.End()
	assert.Equal(t, uint64(0), atomic.LoadUint64(p.word))
}

func TestYieldRequestedHonoredOnEnd(t *testing.T) {
	p := Local()
	p.Begin()
	atomic.StoreUint64(p.word, bitExtending|bitYieldRequested)
	assert.True(t, p.YieldRequested())
	p.End() // must not panic; runtime.Gosched() is called internally
	assert.Equal(t, uint64(0), atomic.LoadUint64(p.word))
}

func TestNilWordPageIsANoop(t *testing.T) {
	var p Page
	assert.NotPanics(t, func() {
		p.Begin()
		p.End()
	})
	assert.False(t, p.YieldRequested())
}

func TestOpenMissingPathFallsBackToNoop(t *testing.T) {
	p, err := Open("/nonexistent/path/that/should/not/exist")
	assert.NoError(t, err)
	assert.NotPanics(t, func() {
		p.Begin()
		p.End()
	})
}
