package marker

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"slices"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// circleKappa is the cubic Bezier control distance for a quarter circle of radius 1.
const circleKappa = 0.5522847

// Canvas is a viewport-sized 2D surface that draws markers as filled circles with labels.
// It stands in for the page the markers would be laid over and is used for snapshots.
type Canvas struct {
	mu *sync.RWMutex

	width, height int
	markerSize    float32

	background color.RGBA
	fill       color.RGBA
	hidden     color.RGBA
	text       color.RGBA
	drawHidden bool

	markers []*canvasMarker
}

// canvasMarker is the Sink handed out by Canvas.Marker.
type canvasMarker struct {
	canvas *Canvas
	label  string
	state  State
}

var _ Sink = &canvasMarker{}

// NewCanvas creates a canvas of the given pixel size.
//
// Parameters:
//   - width: canvas width in pixels
//   - height: canvas height in pixels
//   - options: functional options to configure the canvas
//
// Returns:
//   - *Canvas: the canvas
func NewCanvas(width, height int, options ...CanvasBuilderOption) *Canvas {
	c := &Canvas{
		mu:         &sync.RWMutex{},
		width:      max(width, 1),
		height:     max(height, 1),
		markerSize: 40,
		background: color.RGBA{R: 24, G: 24, B: 28, A: 255},
		fill:       color.RGBA{R: 0, G: 0, B: 0, A: 200},
		hidden:     color.RGBA{R: 90, G: 90, B: 90, A: 120},
		text:       color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Marker registers a new marker and returns its Sink. Markers start hidden.
//
// Parameters:
//   - label: the text drawn next to the marker
//
// Returns:
//   - Sink: the marker's sink
func (c *Canvas) Marker(label string) Sink {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := &canvasMarker{canvas: c, label: label}
	c.markers = append(c.markers, m)
	return m
}

// Resize changes the canvas size. It matches viewport.Viewport's resize callback signature.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = max(width, 1), max(height, 1)
}

// Size returns the canvas size in pixels.
func (c *Canvas) Size() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height
}

// Render draws the current marker state into a new image. Markers are drawn in
// registration order; hidden markers are skipped unless WithHiddenMarkers is set.
//
// Returns:
//   - *image.RGBA: the rendered canvas
func (c *Canvas) Render() *image.RGBA {
	c.mu.RLock()
	width, height := c.width, c.height
	size := c.markerSize
	markers := make([]canvasMarker, len(c.markers))
	for i, m := range c.markers {
		markers[i] = *m
	}
	background, fill, hidden, text, drawHidden := c.background, c.fill, c.hidden, c.text, c.drawHidden
	c.mu.RUnlock()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	half := size / 2
	r := vector.NewRasterizer(width, height)
	r.DrawOp = draw.Over

	for _, m := range markers {
		if !m.state.Visible && !drawHidden {
			continue
		}
		paint := fill
		if !m.state.Visible {
			paint = hidden
		}

		// Offsets are relative to the viewport centre and address the marker's top-left corner.
		cx := float32(width)/2 + m.state.X + half
		cy := float32(height)/2 + m.state.Y + half

		r.Reset(width, height)
		r.DrawOp = draw.Over
		addCircle(r, cx, cy, half)
		r.Draw(img, img.Bounds(), image.NewUniform(paint), image.Point{})

		if m.label != "" {
			d := font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(text),
				Face: basicfont.Face7x13,
				Dot:  fixed.P(int(cx+half+4), int(cy+4)),
			}
			d.DrawString(m.label)
		}
	}
	return img
}

// EncodePNG renders the canvas and writes it as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, c.Render()); err != nil {
		return fmt.Errorf("failed to encode canvas: %w", err)
	}
	return nil
}

// SavePNG renders the canvas to a PNG file, replacing any existing file.
//
// Parameters:
//   - path: the output file path
//
// Returns:
//   - error: error if the file cannot be written
func (c *Canvas) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := c.EncodePNG(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// States returns every marker's state keyed by label. When labels repeat, the first
// registered marker wins.
func (c *Canvas) States() map[string]State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]State, len(c.markers))
	for _, m := range slices.Backward(c.markers) {
		out[m.label] = m.state
	}
	return out
}

func (m *canvasMarker) SetVisible(visible bool) {
	m.canvas.mu.Lock()
	defer m.canvas.mu.Unlock()
	m.state.Visible = visible
}

func (m *canvasMarker) SetOffset(x, y float32) {
	m.canvas.mu.Lock()
	defer m.canvas.mu.Unlock()
	m.state.X, m.state.Y = x, y
}

// addCircle appends a closed circle path made of four cubic segments.
func addCircle(r *vector.Rasterizer, cx, cy, radius float32) {
	k := radius * circleKappa
	r.MoveTo(cx+radius, cy)
	r.CubeTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius)
	r.CubeTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy)
	r.CubeTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius)
	r.CubeTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
	r.ClosePath()
}
