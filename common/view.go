package common

// View is an immutable copy of a camera's eye position and matrices, taken at one instant.
// Everything derived from the same View agrees on a single projection.
type View struct {
	// Position is the world-space eye position.
	Position [3]float32
	// ViewProjection is the combined column-major view-projection matrix.
	ViewProjection [16]float32
	// InverseViewProjection maps normalized device coordinates back to world space.
	InverseViewProjection [16]float32
}

// Project transforms a world-space point into normalized device coordinates.
//
// Parameters:
//   - p: world-space point
//
// Returns:
//   - [3]float32: normalized device coordinates
func (v View) Project(p [3]float32) [3]float32 {
	return ProjectPoint(v.ViewProjection[:], p)
}

// RayFromNDC builds a world-space ray from the eye through the given normalized device coordinates.
//
// Parameters:
//   - x, y: normalized device coordinates in [-1, 1]
//
// Returns:
//   - Ray: the pick ray with a unit direction
func (v View) RayFromNDC(x, y float32) Ray {
	// Any depth strictly inside the clip range lies on the same line of sight.
	through := ProjectPoint(v.InverseViewProjection[:], [3]float32{x, y, 0.5})
	return Ray{
		Origin:    v.Position,
		Direction: Normalize3(Sub3(through, v.Position)),
	}
}

// Frustum returns the six clip planes of the view-projection.
func (v View) Frustum() Frustum {
	return ExtractFrustumFromMatrix(v.ViewProjection[:])
}
