package engine

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-annotate/engine/camera"
	"github.com/Carmen-Shannon/oxy-annotate/engine/marker"
	"github.com/Carmen-Shannon/oxy-annotate/engine/overlay"
	"github.com/Carmen-Shannon/oxy-annotate/engine/scene"
	"github.com/Carmen-Shannon/oxy-annotate/engine/viewport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCamera(options ...camera.CameraControllerOption) camera.Camera {
	options = append([]camera.CameraControllerOption{camera.WithTarget(0, 0, 0), camera.WithRadius(10)}, options...)
	return camera.NewCamera(camera.WithController(camera.NewOrbitController(options...)))
}

func runWithTimeout(t *testing.T, e Engine) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Run(ctx)
}

func TestRunStopsAtFrameLimit(t *testing.T) {
	cam := testCamera()
	vp := viewport.NewViewport(viewport.WithSize(800, 600))
	rec := marker.NewRecorder()
	ov := overlay.NewController(cam, scene.NewScene("empty"), vp, []overlay.Anchor{
		{Name: "origin", Position: [3]float32{0, 0, 0}, Marker: rec},
	})
	ov.MarkReady()

	var frames []uint64
	e := NewEngine(
		WithTickRate(1000),
		WithFrameLimit(3),
		WithCamera(cam),
		WithViewport(vp),
		WithOverlay(ov),
		WithFrameCallback(func(dt float32, result overlay.FrameResult) {
			assert.GreaterOrEqual(t, dt, float32(0))
			assert.True(t, result.Ready)
			frames = append(frames, result.Frame)
		}),
	)

	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, []uint64{1, 2, 3}, frames)
	assert.Equal(t, uint64(3), e.Frames())
	assert.True(t, rec.State().Visible)
}

func TestQuitStopsRun(t *testing.T) {
	var e Engine
	e = NewEngine(WithTickRate(1000), WithFrameCallback(func(float32, overlay.FrameResult) {
		if e.Frames() == 2 {
			e.Quit()
		}
	}))

	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, uint64(2), e.Frames())
	e.Quit()
}

func TestContextCancelStopsRun(t *testing.T) {
	e := NewEngine(WithTickRate(1000))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, e.Run(ctx))
	assert.Greater(t, e.Frames(), uint64(0))
}

func TestRunRejectsSecondCaller(t *testing.T) {
	started := make(chan struct{})
	var once atomic.Bool
	e := NewEngine(WithTickRate(1000), WithFrameCallback(func(float32, overlay.FrameResult) {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
	}))

	done := make(chan error, 1)
	go func() { done <- runWithTimeout(t, e) }()
	<-started

	assert.ErrorIs(t, e.Run(context.Background()), ErrAlreadyRunning)
	e.Quit()
	assert.NoError(t, <-done)
}

func TestPanicIsRecoveredAndLogged(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(
		WithTickRate(1000),
		WithLogger(zerolog.New(&buf)),
		WithFrameCallback(func(float32, overlay.FrameResult) { panic("boom") }),
	)

	err := runWithTimeout(t, e)
	require.ErrorIs(t, err, ErrFramePanic)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, buf.String(), "frame loop recovered from panic")
	assert.Contains(t, buf.String(), `"component":"engine"`)
}

func TestViewportResizeUpdatesCameraAspect(t *testing.T) {
	cam := testCamera()
	vp := viewport.NewViewport(viewport.WithSize(1600, 800))
	var sizes [][2]int
	e := NewEngine(WithCamera(cam), WithViewport(vp), WithResizeHandler(func(w, h int) {
		sizes = append(sizes, [2]int{w, h})
	}))
	frame := e.(*engine).frame

	assert.InDelta(t, 2.0, cam.Aspect(), 1e-6)
	vp.Resize(500, 500)
	assert.InDelta(t, 2.0, cam.Aspect(), 1e-6, "resizes wait for the next frame")
	assert.Equal(t, 1600, vp.Width())
	assert.Empty(t, sizes)

	frame(context.Background(), 0)
	assert.InDelta(t, 1.0, cam.Aspect(), 1e-6)
	assert.Equal(t, 500, vp.Width())

	vp.Resize(500, 500)
	frame(context.Background(), 0)
	assert.Equal(t, [][2]int{{500, 500}}, sizes)
}

func TestResizeDuringRunAppliesOnFrameGoroutine(t *testing.T) {
	cam := testCamera()
	vp := viewport.NewViewport(viewport.WithSize(1600, 800))
	var aspects []float32
	var e Engine
	e = NewEngine(
		WithTickRate(1000),
		WithFrameLimit(4),
		WithCamera(cam),
		WithViewport(vp),
		WithFrameCallback(func(float32, overlay.FrameResult) {
			aspects = append(aspects, cam.Aspect())
			if e.Frames() == 2 {
				vp.Resize(800, 800)
				assert.InDelta(t, 2.0, cam.Aspect(), 1e-6, "not applied mid-frame")
			}
		}),
	)
	require.NoError(t, runWithTimeout(t, e))

	require.Len(t, aspects, 4)
	assert.InDeltaSlice(t, []float32{2, 2, 1, 1}, aspects, 1e-6)
}

func TestFrameAdvancesDampedController(t *testing.T) {
	cam := testCamera(camera.WithDamping(true), camera.WithDampingFactor(0.2))
	x0, y0, z0 := cam.Controller().Position()
	before := cam.Position()

	cam.Controller().Rotate(0.5, 0)
	e := NewEngine(WithTickRate(1000), WithFrameLimit(5), WithCamera(cam))
	require.NoError(t, runWithTimeout(t, e))

	x1, y1, z1 := cam.Controller().Position()
	assert.NotEqual(t, [3]float32{x0, y0, z0}, [3]float32{x1, y1, z1})
	assert.Equal(t, [3]float32{x1, y1, z1}, cam.Position())
	assert.NotEqual(t, before, cam.Position())
}

func TestProfilerTicksWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(WithTickRate(1000), WithFrameLimit(2), WithLogger(zerolog.New(&buf)), WithProfiling(true))
	e.DisableProfiler()
	e.EnableProfiler()
	require.NoError(t, runWithTimeout(t, e))
	assert.Contains(t, buf.String(), "engine stopped")
}

func TestTickInterval(t *testing.T) {
	assert.Equal(t, time.Second/60, tickInterval(0))
	assert.Equal(t, time.Second/60, tickInterval(-5))
	assert.Equal(t, 10*time.Millisecond, tickInterval(100))
}

func TestSetTickRateWhileRunning(t *testing.T) {
	var e Engine
	e = NewEngine(WithTickRate(1000), WithFrameLimit(4), WithFrameCallback(func(float32, overlay.FrameResult) {
		e.SetTickRate(500)
	}))
	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, uint64(4), e.Frames())
}
