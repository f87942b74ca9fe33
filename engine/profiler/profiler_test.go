package profiler

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsAverages(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(WithLogger(zerolog.New(&buf)), WithInterval(time.Hour))

	_, ok := p.Tick(2, 4)
	assert.False(t, ok)
	_, ok = p.Tick(4, 4)
	assert.False(t, ok)
	assert.Empty(t, buf.String())

	// Force the interval to elapse.
	p.lastTime = time.Now().Add(-2 * time.Hour)
	stats, ok := p.Tick(3, 4)
	require.True(t, ok)
	assert.InDelta(t, 3.0, stats.AvgVisible, 1e-9)
	assert.InDelta(t, 4.0, stats.AvgAnchors, 1e-9)
	assert.Greater(t, stats.FPS, 0.0)
	assert.Greater(t, stats.SysMB, 0.0)
	assert.Contains(t, buf.String(), `"message":"profile"`)
	assert.Contains(t, buf.String(), `"component":"profiler"`)

	assert.Zero(t, p.frameCount)
	assert.Zero(t, p.visibleSum)
}

func TestNegativeIntervalIgnored(t *testing.T) {
	p := NewProfiler(WithInterval(-time.Second))
	assert.Equal(t, time.Second, p.updateInterval)
}
