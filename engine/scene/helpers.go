package scene

// GridNodeName is the name given to nodes built by NewGridNode.
const GridNodeName = "grid"

// DefaultLineThreshold is the ray-to-segment distance that counts as a line hit.
const DefaultLineThreshold = 1

// NewGridNode creates a reference grid of line segments on the XZ plane centred on the origin:
// divisions+1 lines along each axis. Like any line geometry the grid takes part in ray casts,
// so a line of sight passing within DefaultLineThreshold of a grid line is blocked there.
//
// Parameters:
//   - size: side length of the grid
//   - divisions: number of cells along each side
//
// Returns:
//   - Node: the grid node
func NewGridNode(size float32, divisions int) Node {
	divisions = max(divisions, 1)
	half := size / 2
	step := size / float32(divisions)

	segments := make([][2][3]float32, 0, 2*(divisions+1))
	for i := 0; i <= divisions; i++ {
		k := -half + float32(i)*step
		segments = append(segments,
			[2][3]float32{{-half, 0, k}, {half, 0, k}},
			[2][3]float32{{k, 0, -half}, {k, 0, half}},
		)
	}
	return NewNode(GridNodeName, WithLines(segments, DefaultLineThreshold))
}
