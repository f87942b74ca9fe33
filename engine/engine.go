package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-annotate/engine/camera"
	"github.com/Carmen-Shannon/oxy-annotate/engine/overlay"
	"github.com/Carmen-Shannon/oxy-annotate/engine/profiler"
	"github.com/Carmen-Shannon/oxy-annotate/engine/viewport"
	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned when Run is called while the engine is running.
var ErrAlreadyRunning = errors.New("engine is already running")

// ErrFramePanic wraps a panic recovered from the frame loop.
var ErrFramePanic = errors.New("frame loop panicked")

// FrameCallback is called once per frame after the overlay has been updated.
type FrameCallback func(deltaTime float32, result overlay.FrameResult)

// engine implements the Engine interface.
// A single frame goroutine drives the camera, the overlay and the callback.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	frames  atomic.Uint64

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	logger     zerolog.Logger
	rootLogger zerolog.Logger

	viewport viewport.Viewport
	camera   camera.Camera
	overlay  overlay.Controller

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	frameCallback  FrameCallback
	resizeHandler  func(width, height int)
	frameLimit     uint64 // 0 = run until cancelled
}

// Engine is the main entry point for the engine.
// It owns the frame loop that keeps camera state current and refreshes the annotation overlay.
type Engine interface {
	// Viewport returns the viewport the engine tracks, or nil if none was configured.
	//
	// Returns:
	//   - viewport.Viewport: the viewport instance
	Viewport() viewport.Viewport

	// Camera returns the camera advanced every frame, or nil if none was configured.
	//
	// Returns:
	//   - camera.Camera: the camera instance
	Camera() camera.Camera

	// Overlay returns the overlay controller updated every frame, or nil if none was configured.
	//
	// Returns:
	//   - overlay.Controller: the controller instance
	Overlay() overlay.Controller

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the frame rate in frames per second.
	// If the engine is running the change takes effect on the next tick.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetFrameCallback registers the function called at the end of every frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds and the overlay result
	SetFrameCallback(callback FrameCallback)

	// Frames returns the number of frames completed since the engine was created.
	//
	// Returns:
	//   - uint64: completed frame count
	Frames() uint64

	// Run drives the frame loop. It blocks until ctx is done, Quit is called or the frame
	// limit is reached. A panic inside a frame is recovered, logged and returned as an
	// error wrapping ErrFramePanic.
	//
	// Parameters:
	//   - ctx: context controlling the loop lifetime
	//
	// Returns:
	//   - error: nil on a normal stop, ErrAlreadyRunning, or a wrapped ErrFramePanic
	Run(ctx context.Context) error

	// Quit signals the frame loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// When a viewport is configured the engine takes over its resize callback and switches it to
// deferred resizing. A Resize from any goroutine is applied at the start of the next frame,
// where it updates the camera aspect and is then passed to the handler set with WithResizeHandler.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		logger:          zerolog.Nop(),
		rootLogger:      zerolog.Nop(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.rootLogger))
	}

	if e.viewport != nil {
		if e.camera != nil {
			e.camera.SetAspect(e.viewport.AspectRatio())
		}
		e.viewport.SetResizeCallback(e.onResize)
		e.viewport.DeferResizes()
	}

	return e
}

// onResize keeps the camera aspect in step with the viewport, then runs the resize handler.
func (e *engine) onResize(width, height int) {
	if e.camera != nil {
		e.camera.SetAspect(float32(width) / float32(height))
	}
	e.logger.Debug().Int("width", width).Int("height", height).Msg("viewport resized")
	if e.resizeHandler != nil {
		e.resizeHandler(width, height)
	}
}

func (e *engine) Viewport() viewport.Viewport {
	return e.viewport
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Overlay() overlay.Controller {
	return e.overlay
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

// Quit signals the frame loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info().
		Dur("tick", e.tickRate()).
		Uint64("frame_limit", e.frameLimit).
		Msg("engine started")

	err := e.handleFrames(ctx)

	e.logger.Info().Uint64("frames", e.frames.Load()).Msg("engine stopped")
	return err
}

// handleFrames runs the fixed-rate frame loop until the context ends, Quit is called or
// the frame limit is reached. Listens for dynamic rate changes via tickRateChannel.
func (e *engine) handleFrames(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Uint64("completed_frames", e.frames.Load()).Msg("frame loop recovered from panic")
			e.Quit()
			err = fmt.Errorf("%w: %v", ErrFramePanic, r)
		}
	}()

	ticker := time.NewTicker(e.tickRate())
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		case <-ticker.C:
			if e.stopped(ctx) {
				return nil
			}
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.frame(ctx, dt)

			if e.frameLimit > 0 && e.frames.Load() >= e.frameLimit {
				return nil
			}
		}
	}
}

// stopped reports whether the loop should exit before starting another frame.
// select picks among ready cases at random, so a pending tick must not outrun Quit.
func (e *engine) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

// frame executes one frame: damped controller motion, camera matrices, overlay, callback
// and profiler, in that order.
func (e *engine) frame(ctx context.Context, dt float32) {
	// Resizes land between frames so the whole frame sees one aspect.
	if e.viewport != nil {
		e.viewport.ApplyPending()
	}

	if e.camera != nil {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.Update()
		}
		e.camera.Update()
	}

	var result overlay.FrameResult
	if e.overlay != nil {
		result = e.overlay.UpdateFrame(ctx)
	}

	e.mu.Lock()
	callback := e.frameCallback
	profiling := e.profilingEnabled
	e.mu.Unlock()

	e.frames.Add(1)

	if callback != nil {
		callback(dt, result)
	}

	if profiling && e.profiler != nil {
		e.profiler.Tick(result.Visible, len(result.Anchors))
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()

	if !e.running.Load() {
		return
	}
	// Non-blocking send; a pending update is replaced by the newest value.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		select {
		case e.tickRateChannel <- newRate:
		default:
		}
	}
}

// SetFrameCallback registers the function called each frame.
func (e *engine) SetFrameCallback(callback FrameCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameCallback = callback
}

func (e *engine) tickRate() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engineTickRate
}

// tickInterval converts a frame rate into a ticker period, defaulting to 60Hz.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	d := time.Duration(float64(time.Second) / fps)
	if d <= 0 {
		d = time.Nanosecond
	}
	return d
}
