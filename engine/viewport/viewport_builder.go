package viewport

// ViewportBuilderOption is a functional option for configuring a viewport.
// Use the With* functions to create options.
type ViewportBuilderOption func(v *viewport)

// WithSize sets the initial width and height.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithSize(width, height int) ViewportBuilderOption {
	return func(v *viewport) {
		v.width = width
		v.height = height
	}
}

// WithMaxSize sets the maximum size accepted by Resize.
//
// Parameters:
//   - maxWidth: maximum width in pixels
//   - maxHeight: maximum height in pixels
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithMaxSize(maxWidth, maxHeight int) ViewportBuilderOption {
	return func(v *viewport) {
		v.maxWidth = maxWidth
		v.maxHeight = maxHeight
	}
}

// WithMinSize sets the minimum size accepted by Resize. Values below 1 are raised to 1.
//
// Parameters:
//   - minWidth: minimum width in pixels
//   - minHeight: minimum height in pixels
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithMinSize(minWidth, minHeight int) ViewportBuilderOption {
	return func(v *viewport) {
		v.minWidth = max(minWidth, 1)
		v.minHeight = max(minHeight, 1)
	}
}

// WithResizeCallback sets the initial resize callback.
//
// Parameters:
//   - callback: function receiving new width and height in pixels
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithResizeCallback(callback func(width, height int)) ViewportBuilderOption {
	return func(v *viewport) {
		v.onResize = callback
	}
}
