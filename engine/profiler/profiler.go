package profiler

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Profiler tracks frame rate, anchor visibility and memory statistics.
// Outputs stats to the logger at a configurable interval. Not safe for concurrent use;
// the engine calls Tick from its frame goroutine only.
type Profiler struct {
	logger zerolog.Logger

	frameCount     int
	visibleSum     int
	anchorSum      int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// Stats is a snapshot of the values logged by a single report.
type Stats struct {
	FPS            float64
	AvgVisible     float64
	AvgAnchors     float64
	HeapMB         float64
	AllocRateMBs   float64
	GCCount        uint32
	LastPauseMicro uint64
	MaxPauseMicro  uint64
	SysMB          float64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second and the logger to a no-op logger.
//
// Parameters:
//   - options: functional options applied after defaults
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         zerolog.Nop(),
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Tick should be called once per frame with the frame's anchor counts.
// Logs statistics when the update interval has elapsed.
//
// Parameters:
//   - visible: number of anchors shown this frame
//   - anchors: number of anchors evaluated this frame
//
// Returns:
//   - Stats: the reported statistics, zero if nothing was reported
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(visible, anchors int) (Stats, bool) {
	p.frameCount++
	p.visibleSum += visible
	p.anchorSum += anchors

	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, TotalAlloc only grows and tracks churn, Sys is the process footprint.
	stats := Stats{
		FPS:        float64(p.frameCount) / elapsed.Seconds(),
		AvgVisible: float64(p.visibleSum) / float64(p.frameCount),
		AvgAnchors: float64(p.anchorSum) / float64(p.frameCount),
		HeapMB:     float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:      float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:    p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	stats.AllocRateMBs = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		stats.LastPauseMicro = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > stats.MaxPauseMicro {
				stats.MaxPauseMicro = pause
			}
		}
	}

	p.logger.Info().
		Float64("fps", stats.FPS).
		Float64("avg_visible", stats.AvgVisible).
		Float64("avg_anchors", stats.AvgAnchors).
		Float64("heap_mb", stats.HeapMB).
		Float64("alloc_rate_mbs", stats.AllocRateMBs).
		Uint32("gc", stats.GCCount).
		Uint64("gc_last_us", stats.LastPauseMicro).
		Uint64("gc_max_us", stats.MaxPauseMicro).
		Float64("sys_mb", stats.SysMB).
		Msg("profile")

	p.frameCount = 0
	p.visibleSum = 0
	p.anchorSum = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
