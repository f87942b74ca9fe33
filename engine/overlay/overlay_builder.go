package overlay

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// ControllerBuilderOption is a functional option for configuring a Controller.
// Use the With* functions to create options.
type ControllerBuilderOption func(c *controller)

// WithMarkerSize sets the marker size in pixels. Offsets are shifted by half of it so the
// marker's center lands on the projected point. Negative values are ignored.
//
// Parameters:
//   - px: the marker size in pixels
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithMarkerSize(px float32) ControllerBuilderOption {
	return func(c *controller) {
		if px >= 0 {
			c.markerSize = px
		}
	}
}

// WithLogger sets the logger for readiness and visibility transitions.
//
// Parameters:
//   - logger: the zerolog logger
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithLogger(logger zerolog.Logger) ControllerBuilderOption {
	return func(c *controller) {
		c.logger = logger
	}
}

// WithMeter sets the OpenTelemetry meter used for frame and visibility metrics.
// Defaults to a no-op meter.
//
// Parameters:
//   - meter: the meter
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithMeter(meter metric.Meter) ControllerBuilderOption {
	return func(c *controller) {
		if meter != nil {
			c.meter = meter
		}
	}
}

// WithOffscreenHidden hides anchors that fall outside the camera frustum, in addition to
// occluded ones. Off by default, in which case only occlusion decides visibility.
//
// Parameters:
//   - hidden: true to hide off-screen anchors
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithOffscreenHidden(hidden bool) ControllerBuilderOption {
	return func(c *controller) {
		c.offscreenHidden = hidden
	}
}
