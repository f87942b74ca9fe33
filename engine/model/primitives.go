package model

import (
	"github.com/chewxy/math32"
)

// boxFaces lists each face as outward normal n plus in-plane axes u, v with u x v = n.
var boxFaces = [6][3][3]float32{
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
}

// NewBoxModel creates an axis-aligned box centred on the origin with outward-facing,
// counter-clockwise triangles.
//
// Parameters:
//   - name: the model identifier
//   - width, height, depth: extents along X, Y and Z
//
// Returns:
//   - Model: the box model
func NewBoxModel(name string, width, height, depth float32) Model {
	half := [3]float32{width / 2, height / 2, depth / 2}
	positions := make([][3]float32, 0, 24)
	indices := make([]uint32, 0, 36)

	for _, face := range boxFaces {
		n, u, v := face[0], face[1], face[2]
		base := uint32(len(positions))
		for _, s := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			var p [3]float32
			for i := 0; i < 3; i++ {
				p[i] = (n[i] + s[0]*u[i] + s[1]*v[i]) * half[i]
			}
			positions = append(positions, p)
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	return NewModel(WithName(name), WithMesh(NewMesh(name, positions, indices)))
}

// NewPlaneModel creates a rectangle in the XY plane facing +Z, centred on the origin.
//
// Parameters:
//   - name: the model identifier
//   - width, height: extents along X and Y
//
// Returns:
//   - Model: the plane model
func NewPlaneModel(name string, width, height float32) Model {
	hw, hh := width/2, height/2
	positions := [][3]float32{
		{-hw, -hh, 0},
		{hw, -hh, 0},
		{hw, hh, 0},
		{-hw, hh, 0},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return NewModel(WithName(name), WithMesh(NewMesh(name, positions, indices)))
}

// NewSphereModel creates a UV sphere centred on the origin with outward-facing triangles.
// Segment counts below the minimum are raised to 3 around and 2 vertically.
//
// Parameters:
//   - name: the model identifier
//   - radius: sphere radius
//   - widthSegments: segments around the Y axis
//   - heightSegments: segments from pole to pole
//
// Returns:
//   - Model: the sphere model
func NewSphereModel(name string, radius float32, widthSegments, heightSegments int) Model {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)

	positions := make([][3]float32, 0, (widthSegments+1)*(heightSegments+1))
	grid := make([][]uint32, heightSegments+1)
	for iy := 0; iy <= heightSegments; iy++ {
		v := float32(iy) / float32(heightSegments)
		row := make([]uint32, widthSegments+1)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float32(ix) / float32(widthSegments)
			sinV := math32.Sin(v * math32.Pi)
			positions = append(positions, [3]float32{
				-radius * math32.Cos(u*2*math32.Pi) * sinV,
				radius * math32.Cos(v*math32.Pi),
				radius * math32.Sin(u*2*math32.Pi) * sinV,
			})
			row[ix] = uint32(len(positions) - 1)
		}
		grid[iy] = row
	}

	var indices []uint32
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			if iy != 0 {
				indices = append(indices, a, b, d)
			}
			if iy != heightSegments-1 {
				indices = append(indices, b, c, d)
			}
		}
	}

	return NewModel(WithName(name), WithMesh(NewMesh(name, positions, indices)))
}
