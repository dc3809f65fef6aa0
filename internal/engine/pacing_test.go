package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerCompressedWait(t *testing.T) {
	p := newPacer(10.0)
	p.begin()

	started := time.Now()
	err := p.wait(context.Background(), 500*time.Millisecond)
	require.NoError(t, err)

	elapsed := time.Since(started)
	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestPacerLateOffsetReturnsImmediately(t *testing.T) {
	p := newPacer(1.0)
	p.begin()
	time.Sleep(30 * time.Millisecond)

	started := time.Now()
	err := p.wait(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 10*time.Millisecond,
		"a deadline already in the past must not block")
}

func TestPacerNoCumulativeDrift(t *testing.T) {
	// Twenty one-second logical steps at 100x compression target 200ms of
	// wall time total. Per-step overhead must not stack because each wait
	// aims at an absolute deadline.
	p := newPacer(100.0)
	p.begin()

	started := time.Now()
	var logical time.Duration
	for i := 0; i < 20; i++ {
		logical += time.Second
		require.NoError(t, p.wait(context.Background(), logical))
		time.Sleep(time.Millisecond) // simulated consumer overhead
	}

	elapsed := time.Since(started)
	assert.GreaterOrEqual(t, elapsed, 195*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestPacerContextCancel(t *testing.T) {
	p := newPacer(1.0)
	p.begin()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	err := p.wait(ctx, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), time.Second)
}
