package viewport

import (
	"sync"
)

// Viewport is the pixel surface the overlay positions markers on. It replaces a platform
// window: the size is set at construction and changed through Resize, which notifies the
// registered resize callback. Thread-safe for concurrent access.
type Viewport interface {
	// Size returns the current width and height in pixels.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// Width returns the current width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int

	// Resize changes the viewport size, clamped to the configured bounds. The resize
	// callback fires only when the clamped size differs from the current one.
	// After DeferResizes the request is queued instead and applied by ApplyPending.
	//
	// Parameters:
	//   - width: requested width in pixels
	//   - height: requested height in pixels
	Resize(width, height int)

	// DeferResizes switches the viewport to queued resizing. Later Resize calls only record
	// the requested size (the latest request wins) until the owner calls ApplyPending.
	DeferResizes()

	// ApplyPending applies a queued resize on the calling goroutine and fires the resize
	// callback. It does nothing when no resize is queued.
	//
	// Returns:
	//   - bool: true if the size changed
	ApplyPending() bool

	// SetResizeCallback sets the function called after the viewport is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels (or nil to disable)
	SetResizeCallback(callback func(width, height int))

	// AspectRatio returns width divided by height.
	//
	// Returns:
	//   - float32: the aspect ratio
	AspectRatio() float32
}

// viewport is the implementation of the Viewport interface.
type viewport struct {
	mu *sync.RWMutex

	// maxWidth is the maximum allowed width during resize.
	maxWidth int

	// maxHeight is the maximum allowed height during resize.
	maxHeight int

	// minWidth is the minimum allowed width during resize.
	minWidth int

	// minHeight is the minimum allowed height during resize.
	minHeight int

	width  int
	height int

	// deferred queues Resize requests into pending until ApplyPending.
	deferred   bool
	hasPending bool
	pending    [2]int

	// onResize is called after the size changes.
	onResize func(width, height int)
}

var _ Viewport = &viewport{}

// NewViewport creates a new Viewport with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the viewport
//
// Returns:
//   - Viewport: the configured viewport
func NewViewport(options ...ViewportBuilderOption) Viewport {
	v := &viewport{
		mu:        &sync.RWMutex{},
		maxWidth:  8192,
		maxHeight: 8192,
		minWidth:  1,
		minHeight: 1,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(v)
	}
	v.width, v.height = v.clamp(v.width, v.height)
	return v
}

func (v *viewport) Size() (int, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width, v.height
}

func (v *viewport) Width() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width
}

func (v *viewport) Height() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.height
}

func (v *viewport) AspectRatio() float32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return float32(v.width) / float32(v.height)
}

func (v *viewport) Resize(width, height int) {
	v.mu.Lock()
	width, height = v.clamp(width, height)
	if v.deferred {
		v.pending = [2]int{width, height}
		v.hasPending = true
		v.mu.Unlock()
		return
	}
	v.apply(width, height)
}

func (v *viewport) DeferResizes() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deferred = true
}

func (v *viewport) ApplyPending() bool {
	v.mu.Lock()
	if !v.hasPending {
		v.mu.Unlock()
		return false
	}
	v.hasPending = false
	return v.apply(v.pending[0], v.pending[1])
}

// apply stores a clamped size and notifies the callback. Caller must hold the mutex,
// which apply releases before the callback runs so the callback may query the viewport.
func (v *viewport) apply(width, height int) bool {
	if width == v.width && height == v.height {
		v.mu.Unlock()
		return false
	}
	v.width, v.height = width, height
	callback := v.onResize
	v.mu.Unlock()

	if callback != nil {
		callback(width, height)
	}
	return true
}

func (v *viewport) SetResizeCallback(callback func(width, height int)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onResize = callback
}

// clamp bounds a size to the configured limits. Caller must hold the mutex or own v exclusively.
func (v *viewport) clamp(width, height int) (int, int) {
	return min(max(width, v.minWidth), v.maxWidth), min(max(height, v.minHeight), v.maxHeight)
}
