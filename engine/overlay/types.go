package overlay

import (
	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/Carmen-Shannon/oxy-annotate/engine/marker"
	"github.com/Carmen-Shannon/oxy-annotate/engine/scene"
)

// Readiness is the one-way scene readiness state owned by a Controller.
type Readiness int32

const (
	// NotReady means assets are still loading; UpdateFrame does nothing.
	NotReady Readiness = iota
	// Ready means the scene is complete; UpdateFrame positions markers every frame.
	Ready
)

func (r Readiness) String() string {
	switch r {
	case NotReady:
		return "not_ready"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Anchor is a fixed world-space point paired with the marker that annotates it.
type Anchor struct {
	// Name identifies the anchor in logs and frame results.
	Name string

	// Label is the human-readable annotation text.
	Label string

	// Position is the world-space point, fixed for the session.
	Position [3]float32

	// Marker receives visibility and offset writes. Required.
	Marker marker.Sink
}

// AnchorState is what UpdateFrame computed for one anchor.
type AnchorState struct {
	Name string

	// NDC is the anchor's normalized device position after the perspective divide.
	NDC [3]float32

	// Offset is the pixel offset written to the marker.
	Offset [2]float32

	// Distance is the straight-line distance from the camera to the anchor.
	Distance float32

	// HitDistance is the nearest intersection distance, valid when Hit is set.
	HitDistance float32
	Hit         bool

	// InFrustum is only computed when off-screen hiding is enabled; otherwise it is true.
	InFrustum bool

	Visible bool
}

// FrameResult summarizes one UpdateFrame call.
type FrameResult struct {
	// Frame counts ready frames, starting at 1.
	Frame uint64

	// Ready is false when the call was skipped because the scene was not ready.
	Ready bool

	// Anchors holds one state per anchor, in construction order.
	Anchors []AnchorState

	// Visible is the number of anchors marked visible this frame.
	Visible int
}

// Camera is the read-only camera capability the controller needs. camera.Camera satisfies it.
type Camera interface {
	// Snapshot returns the eye position and matrices taken under one lock.
	Snapshot() common.View
}

// Scene is the ray query capability the controller needs. scene.Scene satisfies it.
type Scene interface {
	Raycast(ray common.Ray, recursive bool) []scene.Intersection
}

// Viewport provides the current pixel size. viewport.Viewport satisfies it.
type Viewport interface {
	Size() (int, int)
}
