package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-annotate/engine/model"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter runs the parser and mesh extractor and assembles an ImportedModel
// with its node hierarchy.
type gltfImporter interface {
	// Import loads a glTF/GLB file.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if import fails
	Import(path string) (*model.ImportedModel, error)

	// ImportReader loads a glTF document from a reader.
	//
	// Parameters:
	//   - name: fallback model name when the document's default scene is unnamed
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true for GLB binary data, false for glTF JSON
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if import fails
	ImportReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	base := filepath.Base(path)
	return imp.importFromParser(parser, strings.TrimSuffix(base, filepath.Ext(base)))
}

func (imp *gltfImporterImpl) ImportReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return imp.importFromParser(parser, name)
}

func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackName string) (*model.ImportedModel, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errors.New("no document after parsing")
	}

	meshes, err := newGLTFMeshExtractor(parser).ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	nodes, err := gltfExtractNodes(doc, len(meshes))
	if err != nil {
		return nil, fmt.Errorf("node extraction failed: %w", err)
	}

	return &model.ImportedModel{
		Name:   gltfExtractModelName(doc, fallbackName),
		Meshes: meshes,
		Nodes:  nodes,
		Roots:  gltfRootNodes(doc),
	}, nil
}

// --- Helper Functions ---

// gltfExtractNodes converts every glTF node, validating mesh and child references.
func gltfExtractNodes(doc *gltfDocument, meshCount int) ([]model.ImportedNode, error) {
	nodes := make([]model.ImportedNode, len(doc.Nodes))
	for i := range doc.Nodes {
		src := &doc.Nodes[i]

		n := model.ImportedNode{
			Name:      src.Name,
			Transform: model.IdentityTransform(),
			Mesh:      -1,
		}
		if n.Name == "" {
			n.Name = fmt.Sprintf("node_%d", i)
		}

		if src.Matrix != nil {
			m := *src.Matrix
			n.Matrix = &m
		} else {
			if src.Translation != nil {
				n.Transform.Translation = *src.Translation
			}
			if src.Rotation != nil {
				n.Transform.Rotation = *src.Rotation
			}
			if src.Scale != nil {
				n.Transform.Scale = *src.Scale
			}
		}

		if src.Mesh != nil {
			if *src.Mesh < 0 || *src.Mesh >= meshCount {
				return nil, fmt.Errorf("node %d: mesh %d out of range", i, *src.Mesh)
			}
			n.Mesh = *src.Mesh
		}

		for _, c := range src.Children {
			if c < 0 || c >= len(doc.Nodes) || c == i {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
		}
		n.Children = append([]int(nil), src.Children...)
		nodes[i] = n
	}
	return nodes, nil
}

// gltfRootNodes returns the root nodes of the default scene, falling back to scene 0
// and then to every node that is nobody's child.
func gltfRootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		var roots []int
		for _, n := range doc.Scenes[scene].Nodes {
			if n >= 0 && n < len(doc.Nodes) {
				roots = append(roots, n)
			}
		}
		return roots
	}

	isChild := make([]bool, len(doc.Nodes))
	for i := range doc.Nodes {
		for _, c := range doc.Nodes[i].Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// gltfExtractModelName prefers the default scene's name over the fallback.
func gltfExtractModelName(doc *gltfDocument, fallback string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if fallback != "" {
		return fallback
	}
	return "unnamed_model"
}
