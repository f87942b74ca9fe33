package marker

import (
	"image/color"
)

// CanvasBuilderOption is a functional option for configuring a Canvas.
type CanvasBuilderOption func(*Canvas)

// WithMarkerSize sets the marker diameter in pixels. It should match the overlay's marker size
// so offsets land on the circle's bounding box. Non-positive values are ignored.
//
// Parameters:
//   - px: the diameter in pixels
//
// Returns:
//   - CanvasBuilderOption: option function to apply
func WithMarkerSize(px float32) CanvasBuilderOption {
	return func(c *Canvas) {
		if px > 0 {
			c.markerSize = px
		}
	}
}

// WithBackground sets the canvas clear color.
func WithBackground(bg color.RGBA) CanvasBuilderOption {
	return func(c *Canvas) {
		c.background = bg
	}
}

// WithMarkerColors sets the fill color of visible markers and the label color.
func WithMarkerColors(fill, text color.RGBA) CanvasBuilderOption {
	return func(c *Canvas) {
		c.fill = fill
		c.text = text
	}
}

// WithHiddenMarkers draws hidden markers in the given color instead of skipping them.
func WithHiddenMarkers(hidden color.RGBA) CanvasBuilderOption {
	return func(c *Canvas) {
		c.hidden = hidden
		c.drawHidden = true
	}
}
