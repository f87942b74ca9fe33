package overlay

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/Carmen-Shannon/oxy-annotate/engine/camera"
	"github.com/Carmen-Shannon/oxy-annotate/engine/marker"
	"github.com/Carmen-Shannon/oxy-annotate/engine/model"
	"github.com/Carmen-Shannon/oxy-annotate/engine/scene"
	"github.com/Carmen-Shannon/oxy-annotate/engine/viewport"
	"github.com/chewxy/math32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const eps = 1e-3

// axisCamera sits at the origin looking down -Z.
func axisCamera() camera.Camera {
	ctrl := camera.NewCameraController(
		camera.WithTarget(0, 0, -10),
		camera.WithPosition(0, 0, 0),
	)
	return camera.NewCamera(camera.WithAspect(1920.0/1080.0), camera.WithController(ctrl))
}

// wall is a 4x4 plane facing the axis camera at the given distance.
func wall(distance float32) scene.Node {
	return scene.NewNode("wall",
		scene.WithModel(model.NewPlaneModel("wall", 4, 4)),
		scene.WithPosition(0, 0, -distance),
	)
}

func anchorAt(name string, p [3]float32) (Anchor, *marker.Recorder) {
	rec := marker.NewRecorder()
	return Anchor{Name: name, Label: name, Position: p, Marker: rec}, rec
}

func readyController(t *testing.T, cam Camera, sc Scene, anchors []Anchor, options ...ControllerBuilderOption) Controller {
	t.Helper()
	c := NewController(cam, sc, viewport.NewViewport(viewport.WithSize(1920, 1080)), anchors, options...)
	c.MarkReady()
	return c
}

func TestUpdateFrameIsGatedByReadiness(t *testing.T) {
	a, rec := anchorAt("a", [3]float32{0.3, 0.2, -10})
	c := NewController(axisCamera(), scene.NewScene("empty"), viewport.NewViewport(), []Anchor{a})

	assert.Equal(t, NotReady, c.Readiness())
	for range 3 {
		res := c.UpdateFrame(context.Background())
		assert.False(t, res.Ready)
		assert.Empty(t, res.Anchors)
	}
	assert.False(t, rec.Touched())
	v, o := rec.Writes()
	assert.Zero(t, v)
	assert.Zero(t, o)

	c.MarkReady()
	c.MarkReady()
	assert.Equal(t, Ready, c.Readiness())

	res := c.UpdateFrame(context.Background())
	assert.True(t, res.Ready)
	assert.Equal(t, uint64(1), res.Frame)
	assert.True(t, rec.Touched())
}

func TestOccluderBetweenCameraAndAnchorHidesIt(t *testing.T) {
	a, rec := anchorAt("a", [3]float32{0.3, 0.2, -10})
	c := readyController(t, axisCamera(), scene.NewScene("occluded", scene.WithNodes(wall(5))), []Anchor{a})

	res := c.UpdateFrame(context.Background())
	require.Len(t, res.Anchors, 1)
	st := res.Anchors[0]
	assert.True(t, st.Hit)
	assert.InDelta(t, 5, st.HitDistance, 0.01)
	assert.InDelta(t, 10, st.Distance, 0.01)
	assert.False(t, st.Visible)
	assert.False(t, rec.State().Visible)
	assert.Zero(t, res.Visible)
}

func TestNoOccluderLeavesAnchorVisible(t *testing.T) {
	a, rec := anchorAt("a", [3]float32{0.3, 0.2, -10})
	c := readyController(t, axisCamera(), scene.NewScene("empty"), []Anchor{a})

	res := c.UpdateFrame(context.Background())
	assert.False(t, res.Anchors[0].Hit)
	assert.True(t, res.Anchors[0].Visible)
	assert.True(t, rec.State().Visible)
	assert.Equal(t, 1, res.Visible)
}

func TestGeometryBehindAnchorDoesNotHideIt(t *testing.T) {
	a, rec := anchorAt("a", [3]float32{0.3, 0.2, -10})
	c := readyController(t, axisCamera(), scene.NewScene("behind", scene.WithNodes(wall(15))), []Anchor{a})

	res := c.UpdateFrame(context.Background())
	assert.True(t, res.Anchors[0].Hit)
	assert.Greater(t, res.Anchors[0].HitDistance, res.Anchors[0].Distance)
	assert.True(t, rec.State().Visible)
}

// fixedHitScene reports a single hit at a fixed distance for every ray.
type fixedHitScene struct {
	distance float32
}

func (s fixedHitScene) Raycast(common.Ray, bool) []scene.Intersection {
	return []scene.Intersection{{Distance: s.distance}}
}

func TestHitAtAnchorDistanceIsVisible(t *testing.T) {
	cam := axisCamera()
	pos := [3]float32{0.3, 0.2, -10}
	d := common.Distance3(cam.Position(), pos)

	a, rec := anchorAt("a", pos)
	c := readyController(t, cam, fixedHitScene{distance: d}, []Anchor{a})
	c.UpdateFrame(context.Background())
	assert.True(t, rec.State().Visible, "equal distances do not occlude")

	b, recB := anchorAt("b", pos)
	closer := readyController(t, cam, fixedHitScene{distance: math32.Nextafter(d, 0)}, []Anchor{b})
	closer.UpdateFrame(context.Background())
	assert.False(t, recB.State().Visible)
}

func TestOffsetSignFollowsNDC(t *testing.T) {
	up, recUp := anchorAt("up", [3]float32{0, 3, -10})
	down, recDown := anchorAt("down", [3]float32{0, -3, -10})
	right, recRight := anchorAt("right", [3]float32{3, 0, -10})
	c := readyController(t, axisCamera(), scene.NewScene("empty"), []Anchor{up, down, right}, WithMarkerSize(40))

	res := c.UpdateFrame(context.Background())
	assert.Greater(t, res.Anchors[0].NDC[1], float32(0))
	assert.Less(t, recUp.State().Y+20, float32(0), "upper half maps above the centre")
	assert.Greater(t, recDown.State().Y+20, float32(0), "lower half maps below the centre")
	assert.Greater(t, recRight.State().X+20, float32(0))
	assert.InDelta(t, -20, recRight.State().Y, eps)
}

func TestOffsetFormula(t *testing.T) {
	a, rec := anchorAt("a", [3]float32{1, 2, -10})
	vp := viewport.NewViewport(viewport.WithSize(800, 600))
	c := NewController(axisCamera(), scene.NewScene("empty"), vp, []Anchor{a}, WithMarkerSize(10))
	c.MarkReady()

	res := c.UpdateFrame(context.Background())
	ndc := res.Anchors[0].NDC
	assert.InDelta(t, ndc[0]*400-5, rec.State().X, eps)
	assert.InDelta(t, -ndc[1]*300-5, rec.State().Y, eps)

	vp.Resize(1600, 600)
	c.UpdateFrame(context.Background())
	assert.InDelta(t, ndc[0]*800-5, rec.State().X, eps, "viewport size is read every frame")
}

func TestUpdateFrameIsIdempotent(t *testing.T) {
	a, recA := anchorAt("a", [3]float32{0.3, 0.2, -10})
	b, recB := anchorAt("b", [3]float32{1.5, -0.5, -12})
	c := readyController(t, axisCamera(), scene.NewScene("s", scene.WithNodes(wall(5))), []Anchor{a, b})

	first := c.UpdateFrame(context.Background())
	stateA, stateB := recA.State(), recB.State()

	second := c.UpdateFrame(context.Background())
	assert.Equal(t, first.Anchors, second.Anchors)
	assert.Equal(t, first.Visible, second.Visible)
	assert.Equal(t, stateA, recA.State())
	assert.Equal(t, stateB, recB.State())
	assert.Equal(t, uint64(2), second.Frame)
}

func TestAnchorsAreCopied(t *testing.T) {
	a, _ := anchorAt("a", [3]float32{0, 0, -10})
	anchors := []Anchor{a}
	c := NewController(axisCamera(), scene.NewScene("s"), viewport.NewViewport(), anchors)

	anchors[0].Position = [3]float32{9, 9, 9}
	got := c.Anchors()
	assert.Equal(t, [3]float32{0, 0, -10}, got[0].Position)

	got[0].Name = "changed"
	assert.Equal(t, "a", c.Anchors()[0].Name)
	assert.Equal(t, float32(40), c.MarkerSize())
}

func TestNewControllerRejectsMissingCollaborators(t *testing.T) {
	vp := viewport.NewViewport()
	sc := scene.NewScene("s")
	assert.Panics(t, func() { NewController(nil, sc, vp, nil) })
	assert.Panics(t, func() { NewController(axisCamera(), nil, vp, nil) })
	assert.Panics(t, func() { NewController(axisCamera(), sc, nil, nil) })
	assert.Panics(t, func() { NewController(axisCamera(), sc, vp, []Anchor{{Name: "bare"}}) })
}

func TestAnchorBehindCameraProjectsMirrored(t *testing.T) {
	a, rec := anchorAt("behind", [3]float32{0.3, 2, 10})
	cam := axisCamera()
	c := readyController(t, cam, scene.NewScene("empty"), []Anchor{a})

	res := c.UpdateFrame(context.Background())
	st := res.Anchors[0]

	// Negative w flips both axes after the perspective divide.
	assert.Less(t, st.NDC[0], float32(0))
	assert.Less(t, st.NDC[1], float32(0))
	assert.Equal(t, cam.Project(a.Position), st.NDC)
	assert.False(t, st.Hit)
	assert.True(t, st.InFrustum)
	assert.True(t, st.Visible, "off-screen hiding is off by default")
	assert.True(t, rec.State().Visible)
	assert.Less(t, rec.State().X, float32(0))
	assert.Greater(t, rec.State().Y, float32(0))
}

func TestOffscreenHiding(t *testing.T) {
	behind, recBehind := anchorAt("behind", [3]float32{0, 0, 10})
	front, recFront := anchorAt("front", [3]float32{0.3, 0.2, -10})

	plain := readyController(t, axisCamera(), scene.NewScene("empty"), []Anchor{behind})
	plain.UpdateFrame(context.Background())
	assert.True(t, recBehind.State().Visible, "only occlusion decides by default")

	behind2, recBehind2 := anchorAt("behind", [3]float32{0, 0, 10})
	hiding := readyController(t, axisCamera(), scene.NewScene("empty"), []Anchor{behind2, front}, WithOffscreenHidden(true))
	res := hiding.UpdateFrame(context.Background())
	assert.False(t, res.Anchors[0].InFrustum)
	assert.False(t, recBehind2.State().Visible)
	assert.True(t, res.Anchors[1].InFrustum)
	assert.True(t, recFront.State().Visible)
}

func TestMarkReadyFromLoaderGoroutines(t *testing.T) {
	a, rec := anchorAt("a", [3]float32{0.3, 0.2, -10})
	c := NewController(axisCamera(), scene.NewScene("s"), viewport.NewViewport(), []Anchor{a})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.MarkReady()
		}()
	}
	wg.Wait()
	assert.Equal(t, Ready, c.Readiness())
	c.UpdateFrame(context.Background())
	assert.True(t, rec.Touched())
}

func TestVisibilityTransitionsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	a, _ := anchorAt("a", [3]float32{0.3, 0.2, -10})
	occluder := wall(5)
	sc := scene.NewScene("s", scene.WithNodes(occluder))
	c := readyController(t, axisCamera(), sc, []Anchor{a}, WithLogger(logger))

	c.UpdateFrame(context.Background())
	c.UpdateFrame(context.Background())
	occluder.SetEnabled(false)
	c.UpdateFrame(context.Background())

	out := buf.String()
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("scene ready")))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("anchor visibility changed")), out)
}

// recordingMeter counts Int64Counter additions and histogram records by instrument name.
type recordingMeter struct {
	noop.Meter
	mu     sync.Mutex
	counts map[string]*atomic.Int64
}

type recordingCounter struct {
	noop.Int64Counter
	n *atomic.Int64
}

func (c recordingCounter) Add(_ context.Context, v int64, _ ...metric.AddOption) { c.n.Add(v) }

type recordingHistogram struct {
	noop.Int64Histogram
	n *atomic.Int64
}

func (h recordingHistogram) Record(_ context.Context, v int64, _ ...metric.RecordOption) { h.n.Add(v) }

func (m *recordingMeter) counter(name string) *atomic.Int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]*atomic.Int64{}
	}
	if m.counts[name] == nil {
		m.counts[name] = &atomic.Int64{}
	}
	return m.counts[name]
}

func (m *recordingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return recordingCounter{n: m.counter(name)}, nil
}

func (m *recordingMeter) Int64Histogram(name string, _ ...metric.Int64HistogramOption) (metric.Int64Histogram, error) {
	return recordingHistogram{n: m.counter(name)}, nil
}

func TestMetricsAreRecorded(t *testing.T) {
	m := &recordingMeter{}
	a, _ := anchorAt("a", [3]float32{0.3, 0.2, -10})
	b, _ := anchorAt("b", [3]float32{0.3, 0.2, -3})
	c := readyController(t, axisCamera(), scene.NewScene("s", scene.WithNodes(wall(5))), []Anchor{a, b}, WithMeter(m))

	c.UpdateFrame(context.Background())
	c.UpdateFrame(context.Background())

	assert.Equal(t, int64(2), m.counter("overlay.frames").Load())
	assert.Equal(t, int64(2), m.counter("overlay.anchors.occluded").Load())
	assert.Equal(t, int64(2), m.counter("overlay.anchors.visible").Load(), "one visible anchor per frame")
}

// resizingCamera changes its aspect right after each snapshot, like a resize arriving mid-frame.
type resizingCamera struct {
	camera.Camera
	aspect float32
}

func (r resizingCamera) Snapshot() common.View {
	v := r.Camera.Snapshot()
	r.Camera.SetAspect(r.aspect)
	return v
}

func TestAspectChangeMidFrameUsesOneProjection(t *testing.T) {
	occluder := func() Scene {
		return scene.NewScene("occluder", scene.WithNodes(scene.NewNode("box",
			scene.WithModel(model.NewPlaneModel("box", 0.5, 0.5)),
			scene.WithPosition(1.5, 0, -5),
		)))
	}
	pos := [3]float32{3, 0.2, -10}

	a, rec := anchorAt("a", pos)
	c := readyController(t, resizingCamera{Camera: axisCamera(), aspect: 600.0 / 1080.0}, occluder(), []Anchor{a})
	b, _ := anchorAt("b", pos)
	control := readyController(t, axisCamera(), occluder(), []Anchor{b})

	got := c.UpdateFrame(context.Background()).Anchors[0]
	want := control.UpdateFrame(context.Background()).Anchors[0]

	assert.True(t, got.Hit, "the ray follows the projected anchor")
	assert.False(t, got.Visible)
	assert.False(t, rec.State().Visible)
	assert.Equal(t, want.NDC, got.NDC)
	assert.Equal(t, want.Offset, got.Offset)
	assert.InDelta(t, want.HitDistance, got.HitDistance, eps)
}

// rocketScene is a 1x6x1 column standing on the grid, with the grid helper present.
func rocketScene() scene.Scene {
	rocket := scene.NewNode("rocket",
		scene.WithModel(model.NewBoxModel("rocket", 1, 6, 1)),
		scene.WithPosition(0, 3, 0),
	)
	return scene.NewScene("rocket", scene.WithNodes(rocket, scene.NewGridNode(200, 50)))
}

func TestRocketScenario(t *testing.T) {
	ctrl := camera.NewCameraController(
		camera.WithTarget(0, 3.3, -1),
		camera.WithPosition(0, 9, -10),
	)
	cam := camera.NewCamera(
		camera.WithFov(75*math32.Pi/180),
		camera.WithAspect(1920.0/1080.0),
		camera.WithNear(0.1),
		camera.WithFar(100),
		camera.WithController(ctrl),
	)

	positions := [][3]float32{
		{-0.16, 1.5, -0.95},
		{0.6, 2.2, -0.8},
		{0, 3.3, -1},
		{0.4, 4.1, -0.7},
		{-0.5, 5, -0.9},
		{0.1, 3, 1.2}, // behind the rocket
	}
	anchors := make([]Anchor, len(positions))
	recorders := make([]*marker.Recorder, len(positions))
	for i, p := range positions {
		anchors[i], recorders[i] = anchorAt("anchor", p)
	}

	c := readyController(t, cam, rocketScene(), anchors)
	res := c.UpdateFrame(context.Background())
	require.Len(t, res.Anchors, 6)

	const margin = 40
	for i, rec := range recorders {
		st := rec.State()
		assert.GreaterOrEqual(t, st.X, float32(-960-margin), "anchor %d", i)
		assert.LessOrEqual(t, st.X, float32(960+margin), "anchor %d", i)
		assert.GreaterOrEqual(t, st.Y, float32(-540-margin), "anchor %d", i)
		assert.LessOrEqual(t, st.Y, float32(540+margin), "anchor %d", i)
	}

	for i := 0; i < 5; i++ {
		assert.True(t, recorders[i].State().Visible, "front anchor %d", i)
	}
	assert.False(t, recorders[5].State().Visible, "the rocket hides the rear anchor")
	assert.True(t, res.Anchors[5].Hit)
	assert.Equal(t, 5, res.Visible)

	// The orbit target projects to the centre, so its marker is offset by half its size.
	assert.InDelta(t, -20, recorders[2].State().X, 0.5)
	assert.InDelta(t, -20, recorders[2].State().Y, 0.5)
}
