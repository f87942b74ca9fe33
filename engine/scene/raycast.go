package scene

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/chewxy/math32"
)

// detEpsilon rejects rays parallel to a triangle's plane.
const detEpsilon = 1e-10

// Intersection is a single ray hit against a triangle of a node's model or one of its line segments.
type Intersection struct {
	// Distance is the world-space distance from the ray origin to Point.
	Distance float32

	// Point is the world-space hit position.
	Point [3]float32

	// Node is the node that was hit.
	Node Node

	// Mesh is the index of the hit mesh within the node's model, -1 for line hits.
	Mesh int

	// Triangle is the index of the hit triangle within the mesh, -1 for line hits.
	Triangle int

	// Segment is the index of the hit line segment, -1 for triangle hits.
	Segment int
}

// sortIntersections orders hits nearest first. The sort is stable so equal distances keep traversal order.
func sortIntersections(hits []Intersection) {
	slices.SortStableFunc(hits, func(a, b Intersection) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
}

// intersectNode appends hits against n's own model, then its descendants when recursive is set.
// Disabled nodes are skipped together with their subtree.
func intersectNode(n *node, parentWorld *[16]float32, ray common.Ray, recursive bool, out []Intersection) []Intersection {
	n.mu.RLock()
	enabled := n.enabled
	side := n.side
	mdl := n.mdl
	lines := n.lines
	threshold := n.lineThreshold
	local := n.localMatrix()
	var children []*node
	if recursive {
		children = slices.Clone(n.children)
	}
	n.mu.RUnlock()

	if !enabled {
		return out
	}

	world := local
	if parentWorld != nil {
		common.Mul4(world[:], parentWorld[:], local[:])
	}

	if mdl != nil && mdl.Bounds().Transform(world[:]).IntersectsRay(ray) {
		out = intersectModel(n, world, side, ray, out)
	}
	if len(lines) > 0 {
		out = intersectLines(n, world, lines, threshold, ray, out)
	}

	for _, c := range children {
		out = intersectNode(c, &world, ray, recursive, out)
	}
	return out
}

// intersectModel tests every triangle of n's model in model space and reports world-space hits.
func intersectModel(n *node, world [16]float32, side Side, ray common.Ray, out []Intersection) []Intersection {
	var inv [16]float32
	if !common.Invert4(inv[:], world[:]) {
		return out
	}
	localRay := common.Ray{
		Origin:    common.TransformPoint(inv[:], ray.Origin),
		Direction: common.TransformDirection(inv[:], ray.Direction),
	}

	for mi, mesh := range n.mdl.Meshes() {
		if !mesh.Bounds.IntersectsRay(localRay) {
			continue
		}
		for ti := 0; ti < mesh.TriangleCount(); ti++ {
			tri, ok := mesh.Triangle(ti)
			if !ok {
				continue
			}

			var t float32
			var hit bool
			switch side {
			case BackSide:
				t, hit = intersectTriangle(localRay, tri[2], tri[1], tri[0], true)
			case DoubleSide:
				t, hit = intersectTriangle(localRay, tri[0], tri[1], tri[2], false)
			default:
				t, hit = intersectTriangle(localRay, tri[0], tri[1], tri[2], true)
			}
			if !hit {
				continue
			}

			point := common.TransformPoint(world[:], localRay.At(t))
			out = append(out, Intersection{
				Distance: common.Distance3(ray.Origin, point),
				Point:    point,
				Node:     n,
				Mesh:     mi,
				Triangle: ti,
				Segment:  -1,
			})
		}
	}
	return out
}

// intersectLines reports segments passing within threshold of the ray. Distance is measured to
// the closest point on the ray and Point is the closest point on the segment, both in world space.
func intersectLines(n *node, world [16]float32, lines [][2][3]float32, threshold float32, ray common.Ray, out []Intersection) []Intersection {
	limit := threshold * threshold
	for si, seg := range lines {
		a := common.TransformPoint(world[:], seg[0])
		b := common.TransformPoint(world[:], seg[1])

		t, s := closestRaySegment(ray, a, b)
		onRay := ray.At(t)
		onSeg := common.Add3(a, common.Scale3(common.Sub3(b, a), s))
		if d := common.Sub3(onRay, onSeg); common.Dot3(d, d) > limit {
			continue
		}

		out = append(out, Intersection{
			Distance: common.Distance3(ray.Origin, onRay),
			Point:    onSeg,
			Node:     n,
			Mesh:     -1,
			Triangle: -1,
			Segment:  si,
		})
	}
	return out
}

// closestRaySegment returns the ray parameter t >= 0 and segment parameter s in [0, 1] of the
// closest points between the ray and segment ab.
func closestRaySegment(ray common.Ray, a, b [3]float32) (t, s float32) {
	d1 := ray.Direction
	d2 := common.Sub3(b, a)
	r := common.Sub3(ray.Origin, a)

	aa := common.Dot3(d1, d1)
	e := common.Dot3(d2, d2)
	f := common.Dot3(d2, r)
	c := common.Dot3(d1, r)

	if aa <= detEpsilon {
		return 0, clamp01(f / max(e, detEpsilon))
	}
	if e <= detEpsilon {
		return max(-c/aa, 0), 0
	}

	bd := common.Dot3(d1, d2)
	if denom := aa*e - bd*bd; denom > detEpsilon {
		t = max((bd*f-c*e)/denom, 0)
	}

	s = (bd*t + f) / e
	switch {
	case s < 0:
		s = 0
		t = max(-c/aa, 0)
	case s > 1:
		s = 1
		t = max((bd-c)/aa, 0)
	}
	return t, s
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

// intersectTriangle is the Moller-Trumbore test. It returns the ray parameter t of the hit.
// With cullBack set, triangles wound clockwise as seen from the ray origin are rejected.
func intersectTriangle(ray common.Ray, a, b, c [3]float32, cullBack bool) (float32, bool) {
	e1 := common.Sub3(b, a)
	e2 := common.Sub3(c, a)
	p := common.Cross3(ray.Direction, e2)
	det := common.Dot3(e1, p)

	if cullBack {
		if det < detEpsilon {
			return 0, false
		}
	} else if math32.Abs(det) < detEpsilon {
		return 0, false
	}

	inv := 1 / det
	s := common.Sub3(ray.Origin, a)
	u := common.Dot3(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := common.Cross3(s, e1)
	v := common.Dot3(ray.Direction, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := common.Dot3(e2, q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}
