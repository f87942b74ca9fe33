// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "github.com/chewxy/math32"

// Ray is a half-line in world space.
type Ray struct {
	// Origin is the starting point of the ray.
	Origin [3]float32
	// Direction is the unit direction of the ray.
	Direction [3]float32
}

// At returns the point at distance t along the ray.
//
// Parameters:
//   - t: distance along the ray
//
// Returns:
//   - [3]float32: Origin + Direction * t
func (r Ray) At(t float32) [3]float32 {
	return Add3(r.Origin, Scale3(r.Direction, t))
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// EmptyAABB returns an inverted box that any Expand call will overwrite.
//
// Returns:
//   - AABB: a box with Min = +Inf and Max = -Inf
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
}

// Empty reports whether the box contains no points.
func (b AABB) Empty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Expand grows the box to include p.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - AABB: the grown box
func (b AABB) Expand(p [3]float32) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
	return b
}

// Transform returns the world-space box enclosing all eight corners of b transformed by m.
//
// Parameters:
//   - m: an affine column-major 4x4 matrix
//
// Returns:
//   - AABB: the enclosing box
func (b AABB) Transform(m []float32) AABB {
	if b.Empty() {
		return b
	}
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := [3]float32{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.Expand(TransformPoint(m, corner))
	}
	return out
}

// IntersectsRay reports whether the ray passes through the box, using the slab method.
//
// Parameters:
//   - r: the ray to test
//
// Returns:
//   - bool: true if the ray enters the box at a non-negative distance or starts inside it
func (b AABB) IntersectsRay(r Ray) bool {
	if b.Empty() {
		return false
	}
	tMin := math32.Inf(-1)
	tMax := math32.Inf(1)
	for i := 0; i < 3; i++ {
		if r.Direction[i] == 0 {
			if r.Origin[i] < b.Min[i] || r.Origin[i] > b.Max[i] {
				return false
			}
			continue
		}
		inv := 1 / r.Direction[i]
		t0 := (b.Min[i] - r.Origin[i]) * inv
		t1 := (b.Max[i] - r.Origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = math32.Max(tMin, t0)
		tMax = math32.Min(tMax, t1)
		if tMax < tMin {
			return false
		}
	}
	return tMax >= 0
}
