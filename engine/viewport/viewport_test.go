package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportDefaults(t *testing.T) {
	v := NewViewport()
	w, h := v.Size()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
	assert.InDelta(t, 16.0/9.0, v.AspectRatio(), 1e-6)
}

func TestViewportResizeNotifies(t *testing.T) {
	var calls [][2]int
	v := NewViewport(WithSize(1920, 1080), WithResizeCallback(func(w, h int) {
		calls = append(calls, [2]int{w, h})
	}))

	v.Resize(1920, 1080)
	assert.Empty(t, calls, "unchanged size does not notify")

	v.Resize(800, 600)
	assert.Equal(t, [][2]int{{800, 600}}, calls)
	assert.Equal(t, 800, v.Width())
	assert.Equal(t, 600, v.Height())

	v.SetResizeCallback(nil)
	v.Resize(640, 480)
	assert.Len(t, calls, 1)
}

func TestViewportClampsSize(t *testing.T) {
	v := NewViewport(WithSize(100, 100), WithMinSize(200, 150), WithMaxSize(1000, 500))
	w, h := v.Size()
	assert.Equal(t, 200, w, "initial size is clamped too")
	assert.Equal(t, 150, h)

	v.Resize(5000, 0)
	w, h = v.Size()
	assert.Equal(t, 1000, w)
	assert.Equal(t, 150, h)

	zero := NewViewport(WithMinSize(0, -4))
	zero.Resize(0, 0)
	w, h = zero.Size()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestViewportCallbackMayQuerySize(t *testing.T) {
	v := NewViewport()
	var seen int
	v.SetResizeCallback(func(int, int) {
		seen = v.Width()
	})
	v.Resize(300, 200)
	assert.Equal(t, 300, seen)
}

func TestDeferredResizeWaitsForApplyPending(t *testing.T) {
	var calls [][2]int
	v := NewViewport(WithSize(1920, 1080), WithMaxSize(4000, 4000), WithResizeCallback(func(w, h int) {
		calls = append(calls, [2]int{w, h})
	}))
	v.DeferResizes()

	assert.False(t, v.ApplyPending(), "nothing queued")

	v.Resize(600, 1080)
	v.Resize(800, 9000)
	w, h := v.Size()
	assert.Equal(t, 1920, w, "queued size is not visible yet")
	assert.Equal(t, 1080, h)
	assert.Empty(t, calls)

	assert.True(t, v.ApplyPending())
	w, h = v.Size()
	assert.Equal(t, 800, w, "latest request wins")
	assert.Equal(t, 4000, h, "queued size is clamped")
	assert.Equal(t, [][2]int{{800, 4000}}, calls)

	assert.False(t, v.ApplyPending(), "queue is drained")

	v.Resize(800, 4000)
	assert.False(t, v.ApplyPending(), "unchanged size does not notify")
	assert.Len(t, calls, 1)
}

func TestApplyPendingWithoutDeferral(t *testing.T) {
	v := NewViewport()
	v.Resize(300, 200)
	assert.Equal(t, 300, v.Width(), "immediate mode applies at once")
	assert.False(t, v.ApplyPending())
}
