package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-annotate/engine/model"
)

// ErrDracoUnsupported is returned for primitives encoded with KHR_draco_mesh_compression.
// No Draco decoder is available, so such assets must be re-exported uncompressed.
var ErrDracoUnsupported = errors.New("draco-compressed primitives are not supported")

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor converts glTF meshes into triangle lists for ray casting.
// Attributes other than POSITION are ignored.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single mesh by index, merging all of its primitives.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - model.Mesh: the merged triangle list
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) (model.Mesh, error)

	// ExtractAllMeshes extracts every mesh in document order, so glTF mesh indices
	// remain valid indices into the result.
	//
	// Returns:
	//   - []model.Mesh: one Mesh per glTF mesh
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (model.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return model.Mesh{}, errNoDocument
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return model.Mesh{}, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	name := mesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	var positions [][3]float32
	var indices []uint32
	for primIdx := range mesh.Primitives {
		prim := &mesh.Primitives[primIdx]
		primPositions, primIndices, err := e.extractPrimitive(prim)
		if err != nil {
			return model.Mesh{}, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		if primIndices == nil {
			continue
		}

		base := uint32(len(positions))
		positions = append(positions, primPositions...)
		for _, idx := range primIndices {
			indices = append(indices, base+idx)
		}
	}

	if indices == nil {
		indices = []uint32{}
	}
	return model.NewMesh(name, positions, indices), nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]model.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	meshes := make([]model.Mesh, len(doc.Meshes))
	for i := range doc.Meshes {
		m, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		meshes[i] = m
	}
	return meshes, nil
}

// extractPrimitive returns the primitive's positions and a triangle-list index buffer.
// Point and line primitives yield nil indices and are skipped by the caller.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive) ([][3]float32, []uint32, error) {
	if _, ok := prim.Extensions[gltfExtDracoMeshCompression]; ok {
		return nil, nil, ErrDracoUnsupported
	}

	mode := gltfPrimitiveModeTriangles
	if prim.Mode != nil {
		mode = *prim.Mode
	}
	if mode < gltfPrimitiveModeTriangles || mode > gltfPrimitiveModeTriangleFan {
		return nil, nil, nil
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, errors.New("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadPositions(posAccessor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read positions: %w", err)
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndices(*prim.Indices)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, nil, fmt.Errorf("index %d exceeds %d vertices", idx, len(positions))
		}
	}

	switch mode {
	case gltfPrimitiveModeTriangleStrip:
		indices = stripToTriangles(indices)
	case gltfPrimitiveModeTriangleFan:
		indices = fanToTriangles(indices)
	default:
		indices = indices[:len(indices)-len(indices)%3]
	}
	return positions, indices, nil
}

// stripToTriangles flips every other triangle so all keep the strip's winding.
func stripToTriangles(strip []uint32) []uint32 {
	if len(strip) < 3 {
		return []uint32{}
	}
	out := make([]uint32, 0, (len(strip)-2)*3)
	for i := 0; i+2 < len(strip); i++ {
		if i%2 == 0 {
			out = append(out, strip[i], strip[i+1], strip[i+2])
		} else {
			out = append(out, strip[i+1], strip[i], strip[i+2])
		}
	}
	return out
}

func fanToTriangles(fan []uint32) []uint32 {
	if len(fan) < 3 {
		return []uint32{}
	}
	out := make([]uint32, 0, (len(fan)-2)*3)
	for i := 1; i+1 < len(fan); i++ {
		out = append(out, fan[0], fan[i], fan[i+1])
	}
	return out
}
