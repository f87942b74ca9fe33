package scene

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/Carmen-Shannon/oxy-annotate/engine/model"
)

// NodeBuilderOption is a functional option for configuring a Node during construction.
type NodeBuilderOption func(*node)

// WithEnabled sets whether the Node takes part in ray casting.
//
// Parameters:
//   - enabled: true to include the node and its subtree, false to skip them
//
// Returns:
//   - NodeBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) NodeBuilderOption {
	return func(n *node) {
		n.enabled = enabled
	}
}

// WithSide sets which triangle faces of the Node's model are hit by rays.
//
// Parameters:
//   - side: FrontSide, BackSide or DoubleSide
//
// Returns:
//   - NodeBuilderOption: functional option to set the face side
func WithSide(side Side) NodeBuilderOption {
	return func(n *node) {
		n.side = side
	}
}

// WithModel sets the Model for this Node.
//
// Parameters:
//   - m: the Model to associate
//
// Returns:
//   - NodeBuilderOption: functional option to set the Model
func WithModel(m model.Model) NodeBuilderOption {
	return func(n *node) {
		n.mdl = m
	}
}

// WithLines gives the Node line geometry. A ray hits a segment when it passes within
// threshold world units of it; non-positive thresholds fall back to DefaultLineThreshold.
//
// Parameters:
//   - segments: segment endpoints in local space
//   - threshold: hit distance in world units
//
// Returns:
//   - NodeBuilderOption: functional option to set the line geometry
func WithLines(segments [][2][3]float32, threshold float32) NodeBuilderOption {
	return func(n *node) {
		n.lines = slices.Clone(segments)
		if threshold <= 0 {
			threshold = DefaultLineThreshold
		}
		n.lineThreshold = threshold
	}
}

// WithPosition sets the local translation of the Node.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - NodeBuilderOption: functional option to set the position
func WithPosition(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.transform.Translation = [3]float32{x, y, z}
	}
}

// WithScale sets the local scale of the Node.
//
// Parameters:
//   - sx: the x scale factor
//   - sy: the y scale factor
//   - sz: the z scale factor
//
// Returns:
//   - NodeBuilderOption: functional option to set the scale
func WithScale(sx, sy, sz float32) NodeBuilderOption {
	return func(n *node) {
		n.transform.Scale = [3]float32{sx, sy, sz}
	}
}

// WithRotation sets the local rotation of the Node from XYZ Euler angles in radians.
//
// Parameters:
//   - rx: the x rotation angle
//   - ry: the y rotation angle
//   - rz: the z rotation angle
//
// Returns:
//   - NodeBuilderOption: functional option to set the rotation
func WithRotation(rx, ry, rz float32) NodeBuilderOption {
	return func(n *node) {
		n.transform.Rotation = common.QuatFromEuler(rx, ry, rz)
	}
}

// WithQuaternion sets the local rotation of the Node from a quaternion (x, y, z, w).
func WithQuaternion(q [4]float32) NodeBuilderOption {
	return func(n *node) {
		n.transform.Rotation = q
	}
}

// WithTransform sets the full local transform of the Node.
func WithTransform(t model.Transform) NodeBuilderOption {
	return func(n *node) {
		n.transform = t
	}
}

// WithMatrix sets an explicit local matrix that overrides the TRS transform.
//
// Parameters:
//   - m: the column-major local matrix
//
// Returns:
//   - NodeBuilderOption: functional option to set the local matrix
func WithMatrix(m [16]float32) NodeBuilderOption {
	return func(n *node) {
		n.matrix = &m
	}
}

// WithChildren attaches child nodes.
//
// Parameters:
//   - children: the nodes to attach
//
// Returns:
//   - NodeBuilderOption: functional option to attach the children
func WithChildren(children ...Node) NodeBuilderOption {
	return func(n *node) {
		for _, c := range children {
			n.AddChild(c)
		}
	}
}
