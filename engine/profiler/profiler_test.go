package profiler

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestHistoryRing(t *testing.T) {
	p := NewProfiler(WithHistory(3), WithUpdateInterval(time.Hour))
	start := p.lastFrame

	assert.Empty(t, p.History())

	// 10ms, 20ms, 25ms, 50ms frames.
	offsets := []time.Duration{10, 30, 55, 105}
	for _, ms := range offsets {
		p.TickAt(start.Add(ms * time.Millisecond))
	}

	h := p.History()
	require.Len(t, h, 3)
	assert.InDelta(t, 50, h[0], 1e-3)
	assert.InDelta(t, 40, h[1], 1e-3)
	assert.InDelta(t, 20, h[2], 1e-3)
}

func TestAverageFPS(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(time.Second))
	start := p.lastTime

	for i := 1; i < 60; i++ {
		assert.False(t, p.TickAt(start.Add(time.Duration(i)*time.Second/60)))
	}
	assert.Zero(t, p.AverageFPS())
	assert.True(t, p.TickAt(start.Add(time.Second)))
	assert.InDelta(t, 60, p.AverageFPS(), 1e-3)
}

func TestZeroDeltaIsSkipped(t *testing.T) {
	p := NewProfiler()
	p.TickAt(p.lastFrame)
	assert.Empty(t, p.History())
}
