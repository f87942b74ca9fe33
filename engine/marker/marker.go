// Package marker defines the on-screen marker capability the overlay controller drives,
// plus sinks that record, log or draw marker state.
package marker

// Sink is the narrow capability a marker element exposes: visibility and a pixel offset
// relative to the viewport centre. Implementations must be safe to call from the frame goroutine
// while other goroutines read their state.
type Sink interface {
	// SetVisible shows or hides the marker.
	//
	// Parameters:
	//   - visible: true to show
	SetVisible(visible bool)

	// SetOffset moves the marker's top-left corner to (x, y) pixels from the viewport centre.
	// Positive y points down.
	//
	// Parameters:
	//   - x: horizontal offset in pixels
	//   - y: vertical offset in pixels
	SetOffset(x, y float32)
}

// State is a snapshot of a marker's last written values.
type State struct {
	// Visible is the last visibility written.
	Visible bool

	// X and Y are the last offset written.
	X, Y float32
}
