package overlay

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// defaultMarkerSize is the marker's edge length in pixels; offsets center a marker of this size.
const defaultMarkerSize = 40

// Controller keeps each anchor's marker positioned over its projected world point and hidden
// while scene geometry lies between the camera and the anchor.
type Controller interface {
	// UpdateFrame projects every anchor, tests it for occlusion against the whole scene and
	// writes visibility and pixel offset to its marker. It does nothing until MarkReady has
	// been called. The context is only used for metric recording.
	//
	// Parameters:
	//   - ctx: the frame context
	//
	// Returns:
	//   - FrameResult: per-anchor results, or a zero result with Ready unset when skipped
	UpdateFrame(ctx context.Context) FrameResult

	// MarkReady switches the controller to Ready. Later calls have no effect.
	// Safe to call from any goroutine, typically an asset loader's completion callback.
	MarkReady()

	// Readiness returns the current readiness state.
	Readiness() Readiness

	// Anchors returns a copy of the anchor set.
	Anchors() []Anchor

	// MarkerSize returns the marker size in pixels used to center offsets.
	MarkerSize() float32
}

type controller struct {
	// mu serializes UpdateFrame so markers see one frame's writes at a time.
	mu *sync.Mutex

	camera   Camera
	scene    Scene
	viewport Viewport
	anchors  []Anchor

	readiness atomic.Int32
	frame     uint64

	// lastVisible holds the previous frame's visibility per anchor: -1 unknown, 0 hidden, 1 visible.
	lastVisible []int8

	markerSize      float32
	offscreenHidden bool

	logger zerolog.Logger
	meter  metric.Meter

	frames     metric.Int64Counter
	occlusions metric.Int64Counter
	visible    metric.Int64Histogram
	ready      metric.Int64ObservableGauge
}

var _ Controller = &controller{}

// NewController creates a Controller in the NotReady state. The anchor slice is copied, so the
// anchor set is fixed for the controller's lifetime. Camera, scene and viewport are held by
// reference and only read.
//
// Panics if cam, sc or vp is nil, or if any anchor has no marker.
//
// Parameters:
//   - cam: the camera the anchors are projected with
//   - sc: the scene rays are cast against
//   - vp: the viewport pixel size provider
//   - anchors: the anchor set
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the new controller
func NewController(cam Camera, sc Scene, vp Viewport, anchors []Anchor, options ...ControllerBuilderOption) Controller {
	if cam == nil || sc == nil || vp == nil {
		panic("overlay: camera, scene and viewport are required")
	}
	for i, a := range anchors {
		if a.Marker == nil {
			panic(fmt.Sprintf("overlay: anchor %d (%q) has no marker", i, a.Name))
		}
	}

	c := &controller{
		mu:         &sync.Mutex{},
		camera:     cam,
		scene:      sc,
		viewport:   vp,
		anchors:    slices.Clone(anchors),
		markerSize: defaultMarkerSize,
		logger:     zerolog.Nop(),
		meter:      noop.Meter{},
	}
	for _, option := range options {
		option(c)
	}

	c.lastVisible = make([]int8, len(c.anchors))
	for i := range c.lastVisible {
		c.lastVisible[i] = -1
	}

	if err := c.initMetrics(); err != nil {
		c.logger.Warn().Err(err).Msg("overlay metrics disabled")
		c.meter = noop.Meter{}
		_ = c.initMetrics()
	}
	return c
}

func (c *controller) initMetrics() error {
	var err error

	c.frames, err = c.meter.Int64Counter(
		"overlay.frames",
		metric.WithDescription("Frames processed while the scene is ready"),
	)
	if err != nil {
		return fmt.Errorf("creating frames counter: %w", err)
	}

	c.occlusions, err = c.meter.Int64Counter(
		"overlay.anchors.occluded",
		metric.WithDescription("Anchor updates that found geometry between camera and anchor"),
	)
	if err != nil {
		return fmt.Errorf("creating occlusion counter: %w", err)
	}

	c.visible, err = c.meter.Int64Histogram(
		"overlay.anchors.visible",
		metric.WithDescription("Visible anchors per frame"),
	)
	if err != nil {
		return fmt.Errorf("creating visible histogram: %w", err)
	}

	c.ready, err = c.meter.Int64ObservableGauge(
		"overlay.ready",
		metric.WithDescription("1 once the scene is ready, otherwise 0"),
	)
	if err != nil {
		return fmt.Errorf("creating ready gauge: %w", err)
	}

	_, err = c.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(c.ready, int64(c.readiness.Load()))
			return nil
		},
		c.ready,
	)
	if err != nil {
		return fmt.Errorf("registering ready callback: %w", err)
	}
	return nil
}

func (c *controller) MarkReady() {
	if c.readiness.CompareAndSwap(int32(NotReady), int32(Ready)) {
		c.logger.Info().Int("anchors", len(c.anchors)).Msg("scene ready, annotations enabled")
	}
}

func (c *controller) Readiness() Readiness {
	return Readiness(c.readiness.Load())
}

func (c *controller) Anchors() []Anchor {
	return slices.Clone(c.anchors)
}

func (c *controller) MarkerSize() float32 {
	return c.markerSize
}

func (c *controller) UpdateFrame(ctx context.Context) FrameResult {
	if c.Readiness() != Ready {
		return FrameResult{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.frame++
	result := FrameResult{
		Frame:   c.frame,
		Ready:   true,
		Anchors: make([]AnchorState, len(c.anchors)),
	}

	// One snapshot per frame: projection, rays and the eye position must agree.
	view := c.camera.Snapshot()
	width, height := c.viewport.Size()
	half := c.markerSize / 2

	var frustum common.Frustum
	if c.offscreenHidden {
		frustum = view.Frustum()
	}

	occluded := 0
	for i, a := range c.anchors {
		st := AnchorState{
			Name:      a.Name,
			NDC:       view.Project(a.Position),
			Distance:  common.Distance3(view.Position, a.Position),
			InFrustum: true,
			Visible:   true,
		}

		// The whole scene is tested, helper geometry included.
		hits := c.scene.Raycast(view.RayFromNDC(st.NDC[0], st.NDC[1]), true)
		if len(hits) > 0 {
			st.Hit = true
			st.HitDistance = hits[0].Distance
			// Strict: a hit exactly at the anchor does not hide it.
			if st.HitDistance < st.Distance {
				st.Visible = false
				occluded++
			}
		}

		if c.offscreenHidden && !frustum.ContainsPoint(a.Position) {
			st.InFrustum = false
			st.Visible = false
		}

		st.Offset = [2]float32{
			st.NDC[0]*float32(width)*0.5 - half,
			-st.NDC[1]*float32(height)*0.5 - half,
		}

		a.Marker.SetVisible(st.Visible)
		a.Marker.SetOffset(st.Offset[0], st.Offset[1])

		if st.Visible {
			result.Visible++
		}
		c.logTransition(i, st)
		result.Anchors[i] = st
	}

	frameAttr := metric.WithAttributes(attribute.Int("anchors", len(c.anchors)))
	c.frames.Add(ctx, 1, frameAttr)
	c.visible.Record(ctx, int64(result.Visible), frameAttr)
	if occluded > 0 {
		c.occlusions.Add(ctx, int64(occluded), frameAttr)
	}
	return result
}

// logTransition logs an anchor's visibility when it differs from the previous frame.
// Caller must hold the mutex.
func (c *controller) logTransition(i int, st AnchorState) {
	now := int8(0)
	if st.Visible {
		now = 1
	}
	if c.lastVisible[i] == now {
		return
	}
	c.lastVisible[i] = now

	c.logger.Debug().
		Uint64("frame", c.frame).
		Str("anchor", st.Name).
		Bool("visible", st.Visible).
		Bool("hit", st.Hit).
		Float32("distance", st.Distance).
		Float32("hit_distance", st.HitDistance).
		Msg("anchor visibility changed")
}
