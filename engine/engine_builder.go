package engine

import (
	"github.com/Carmen-Shannon/oxy-annotate/engine/camera"
	"github.com/Carmen-Shannon/oxy-annotate/engine/overlay"
	"github.com/Carmen-Shannon/oxy-annotate/engine/profiler"
	"github.com/Carmen-Shannon/oxy-annotate/engine/viewport"
	"github.com/rs/zerolog"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler, e.g. to change its report interval.
//
// Parameters:
//   - p: the profiler to tick each frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the frame rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target frames per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithViewport sets the viewport whose resizes are forwarded to the camera aspect.
//
// Parameters:
//   - v: the viewport
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewport(v viewport.Viewport) EngineBuilderOption {
	return func(e *engine) {
		e.viewport = v
	}
}

// WithCamera sets the camera whose controller and matrices are advanced each frame.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithOverlay sets the overlay controller updated each frame.
//
// Parameters:
//   - o: the overlay controller
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOverlay(o overlay.Controller) EngineBuilderOption {
	return func(e *engine) {
		e.overlay = o
	}
}

// WithFrameCallback registers the function called at the end of every frame.
//
// Parameters:
//   - callback: the frame callback
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameCallback(callback FrameCallback) EngineBuilderOption {
	return func(e *engine) {
		e.frameCallback = callback
	}
}

// WithResizeHandler registers a function called after each viewport resize has been applied
// to the camera.
//
// Parameters:
//   - handler: function receiving the new size in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithResizeHandler(handler func(width, height int)) EngineBuilderOption {
	return func(e *engine) {
		e.resizeHandler = handler
	}
}

// WithFrameLimit stops Run after n frames. Zero runs until cancelled.
//
// Parameters:
//   - n: the number of frames to run
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = n
	}
}

// WithLogger sets the engine logger. The default profiler reports to it as well.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger zerolog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.rootLogger = logger
		e.logger = logger.With().Str("component", "engine").Logger()
	}
}
