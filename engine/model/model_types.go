package model

import (
	"github.com/Carmen-Shannon/oxy-annotate/common"
)

// --- Transform Types ---

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Matrix composes the transform into a column-major 4x4 matrix.
//
// Returns:
//   - [16]float32: the composed matrix
func (t Transform) Matrix() [16]float32 {
	var m [16]float32
	common.ComposeTRS(m[:], t.Translation, t.Rotation, t.Scale)
	return m
}

// --- Mesh Types ---

// Mesh is an indexed triangle list in model space.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// Positions are the vertex positions.
	Positions [][3]float32

	// Indices are the triangle indices, three per triangle.
	Indices []uint32

	// Bounds is the axis-aligned box enclosing every position.
	Bounds common.AABB
}

// NewMesh builds a Mesh and computes its bounds. A nil index list is treated as a
// non-indexed triangle list and filled with sequential indices.
//
// Parameters:
//   - name: the mesh identifier
//   - positions: vertex positions
//   - indices: triangle indices, or nil
//
// Returns:
//   - Mesh: the mesh with bounds populated
func NewMesh(name string, positions [][3]float32, indices []uint32) Mesh {
	if indices == nil {
		indices = make([]uint32, len(positions)-len(positions)%3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	bounds := common.EmptyAABB()
	for _, p := range positions {
		bounds = bounds.Expand(p)
	}
	return Mesh{
		Name:      name,
		Positions: positions,
		Indices:   indices,
		Bounds:    bounds,
	}
}

// TriangleCount returns the number of complete triangles in the index list.
func (m Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the three corners of triangle i. The second return is false when an
// index is out of range for the position list.
//
// Parameters:
//   - i: triangle index in [0, TriangleCount())
//
// Returns:
//   - [3][3]float32: corners a, b, c in winding order
//   - bool: false if the triangle references a missing vertex
func (m Mesh) Triangle(i int) ([3][3]float32, bool) {
	var tri [3][3]float32
	n := uint32(len(m.Positions))
	for k := 0; k < 3; k++ {
		idx := m.Indices[i*3+k]
		if idx >= n {
			return tri, false
		}
		tri[k] = m.Positions[idx]
	}
	return tri, true
}

// Transformed returns a copy of the mesh with every position multiplied by m.
//
// Parameters:
//   - mat: a column-major affine matrix
//
// Returns:
//   - Mesh: the transformed copy with recomputed bounds
func (m Mesh) Transformed(mat []float32) Mesh {
	positions := make([][3]float32, len(m.Positions))
	for i, p := range m.Positions {
		positions[i] = common.TransformPoint(mat, p)
	}
	indices := make([]uint32, len(m.Indices))
	copy(indices, m.Indices)
	return NewMesh(m.Name, positions, indices)
}

// --- Import Types ---

// ImportedNode is one node of an imported scene hierarchy.
type ImportedNode struct {
	// Name is the node identifier.
	Name string

	// Transform is the node's transform relative to its parent.
	Transform Transform

	// Matrix, when non-nil, overrides Transform with an explicit local matrix.
	Matrix *[16]float32

	// Mesh is the index into ImportedModel.Meshes, or -1 for none.
	Mesh int

	// Children are indices into ImportedModel.Nodes.
	Children []int
}

// LocalMatrix returns the node's local matrix, preferring the explicit matrix when present.
//
// Returns:
//   - [16]float32: the local transform
func (n ImportedNode) LocalMatrix() [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	return n.Transform.Matrix()
}

// ImportedModel represents a 3D model loaded from an external format.
// This is the universal format that importers produce.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Meshes contains one entry per source mesh, primitives merged, in model space.
	Meshes []Mesh

	// Nodes is the flattened node hierarchy.
	Nodes []ImportedNode

	// Roots are indices into Nodes for the top-level nodes of the default scene.
	Roots []int
}

// WorldMeshes walks the node hierarchy from the roots and returns every mesh instance
// baked into world space. When the model has no nodes, the meshes are returned as-is.
//
// Returns:
//   - []Mesh: world-space mesh instances
func (im *ImportedModel) WorldMeshes() []Mesh {
	if len(im.Nodes) == 0 {
		return im.Meshes
	}
	var out []Mesh
	visited := make([]bool, len(im.Nodes))
	var walk func(idx int, parent [16]float32)
	walk = func(idx int, parent [16]float32) {
		if idx < 0 || idx >= len(im.Nodes) || visited[idx] {
			return
		}
		visited[idx] = true
		node := im.Nodes[idx]
		local := node.LocalMatrix()
		var world [16]float32
		common.Mul4(world[:], parent[:], local[:])
		if node.Mesh >= 0 && node.Mesh < len(im.Meshes) {
			out = append(out, im.Meshes[node.Mesh].Transformed(world[:]))
		}
		for _, child := range node.Children {
			walk(child, world)
		}
	}
	for _, root := range im.Roots {
		walk(root, common.IdentityMatrix())
	}
	return out
}
