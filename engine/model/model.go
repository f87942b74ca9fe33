package model

import (
	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/chewxy/math32"
)

// model is the implementation of the Model interface.
type model struct {
	name           string
	meshes         []Mesh
	bounds         common.AABB
	boundingRadius float32
	radiusOverride bool
}

// Model defines the interface for a loaded 3D model.
// A Model is an immutable container of triangle meshes in model space, used as
// ray casting geometry by the scene. It is produced by the Loader after importing
// a model file, or by the primitive builders.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Meshes retrieves the triangle meshes of this model.
	//
	// Returns:
	//   - []Mesh: the meshes
	Meshes() []Mesh

	// Bounds returns the axis-aligned box enclosing every mesh.
	//
	// Returns:
	//   - common.AABB: the model-space bounds
	Bounds() common.AABB

	// TriangleCount returns the total number of triangles across all meshes.
	//
	// Returns:
	//   - int: the triangle count
	TriangleCount() int

	// BoundingRadius returns the bounding sphere radius for this model, measured as
	// the maximum vertex distance from the origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// Bounds and bounding radius are computed from the meshes unless overridden.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}

	m.bounds = common.EmptyAABB()
	var maxDistSq float32
	for _, mesh := range m.meshes {
		if !mesh.Bounds.Empty() {
			m.bounds = m.bounds.Expand(mesh.Bounds.Min).Expand(mesh.Bounds.Max)
		}
		for _, p := range mesh.Positions {
			if d := common.Dot3(p, p); d > maxDistSq {
				maxDistSq = d
			}
		}
	}
	if !m.radiusOverride {
		m.boundingRadius = math32.Sqrt(maxDistSq)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Meshes() []Mesh {
	return m.meshes
}

func (m *model) Bounds() common.AABB {
	return m.bounds
}

func (m *model) TriangleCount() int {
	n := 0
	for _, mesh := range m.meshes {
		n += mesh.TriangleCount()
	}
	return n
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}
