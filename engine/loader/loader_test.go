package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/Carmen-Shannon/oxy-annotate/engine/scene"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

// quadBuffer holds four XY positions facing +Z followed by six uint16 indices.
func quadBuffer() []byte {
	var buf bytes.Buffer
	for _, p := range [][3]float32{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}} {
		for _, c := range p {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(c))
		}
	}
	for _, i := range []uint16{0, 1, 2, 0, 2, 3} {
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	return buf.Bytes()
}

func intPtr(v int) *int { return &v }

// quadDocument describes a "quad" node at z=5 with a "child" node three units along +X,
// both instancing the same mesh.
func quadDocument(uri string) *gltfDocument {
	childMatrix := common.IdentityMatrix()
	childMatrix[12] = 3

	return &gltfDocument{
		Asset:  gltfAsset{Version: "2.0"},
		Scene:  intPtr(0),
		Scenes: []gltfScene{{Name: "test_scene", Nodes: []int{0}}},
		Nodes: []gltfNode{
			{Name: "quad", Mesh: intPtr(0), Translation: &[3]float32{0, 0, 5}, Children: []int{1}},
			{Name: "child", Mesh: intPtr(0), Matrix: &childMatrix},
		},
		Meshes: []gltfMesh{{
			Name: "quad_mesh",
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0},
				Indices:    intPtr(1),
			}},
		}},
		Accessors: []gltfAccessor{
			{BufferView: intPtr(0), ComponentType: gltfComponentTypeFloat, Count: 4, Type: gltfAccessorTypeVec3},
			{BufferView: intPtr(1), ComponentType: gltfComponentTypeUnsignedShort, Count: 6, Type: gltfAccessorTypeScalar},
		},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 48},
			{Buffer: 0, ByteOffset: 48, ByteLength: 12},
		},
		Buffers: []gltfBuffer{{URI: uri, ByteLength: 60}},
	}
}

func embeddedGLTF(t *testing.T, doc *gltfDocument) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func dataURI() string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(quadBuffer())
}

// buildGLB packs a document and binary chunk into a GLB container with 4-byte aligned chunks.
func buildGLB(t *testing.T, doc *gltfDocument, bin []byte) []byte {
	t.Helper()
	jsonData := embeddedGLTF(t, doc)
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	total := 12 + 8 + len(jsonData) + 8 + len(bin)
	require.NoError(t, binary.Write(&out, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)}))
	require.NoError(t, binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonData)), ChunkType: gltfGLBChunkJSON}))
	out.Write(jsonData)
	require.NoError(t, binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN}))
	out.Write(bin)
	return out.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadReaderEmbeddedBuffer(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)

	m, err := l.LoadReader("quad", bytes.NewReader(embeddedGLTF(t, quadDocument(dataURI()))), false)
	require.NoError(t, err)

	assert.Equal(t, "test_scene", m.Name())
	require.Len(t, m.Meshes(), 2, "one baked instance per node")
	assert.Equal(t, 4, m.TriangleCount())

	bounds := m.Bounds()
	assert.InDeltaSlice(t, []float32{-1, -1, 5}, bounds.Min[:], eps)
	assert.InDeltaSlice(t, []float32{4, 1, 5}, bounds.Max[:], eps)

	assert.Same(t, m, l.Get("quad"))
	assert.Contains(t, l.Models(), "quad")
	assert.Nil(t, l.Get("missing"))
}

func TestLoadGLBAndCache(t *testing.T) {
	doc := quadDocument("")
	path := writeFile(t, t.TempDir(), "quad.glb", buildGLB(t, doc, quadBuffer()))

	l := NewLoader(BackendTypeGLTF)
	first, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, first.TriangleCount())

	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadSceneBuildsHierarchy(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quad.gltf", embeddedGLTF(t, quadDocument(dataURI())))

	l := NewLoader(BackendTypeGLTF)
	root, err := l.LoadScene(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scene", root.Name())
	quad := root.Find("quad")
	child := root.Find("child")
	require.NotNil(t, quad)
	require.NotNil(t, child)
	assert.Same(t, quad, child.Parent())
	assert.Same(t, quad.Model(), child.Model(), "instances share the mesh model")

	world := child.WorldMatrix()
	assert.InDeltaSlice(t, []float32{3, 0, 5}, func() []float32 {
		p := common.TransformPoint(world[:], [3]float32{})
		return p[:]
	}(), eps)

	sc := scene.NewScene("loaded", scene.WithNodes(root))
	hits := sc.Raycast(common.Ray{Origin: [3]float32{3, 0.1, 10}, Direction: [3]float32{0, 0, -1}}, true)
	require.Len(t, hits, 1)
	assert.Equal(t, "child", hits[0].Node.Name())
	assert.InDelta(t, 5, hits[0].Distance, eps)

	again, err := l.LoadScene(path)
	require.NoError(t, err)
	assert.NotSame(t, root, again, "every call returns a fresh tree")
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)

	_, err := l.LoadReader("magic", bytes.NewReader([]byte("not a glb file at all")), true)
	assert.ErrorIs(t, err, errInvalidGLBMagic)

	_, err = l.LoadReader("short", bytes.NewReader([]byte{1, 2, 3}), true)
	assert.ErrorIs(t, err, errGLBTooSmall)

	old := quadDocument(dataURI())
	old.Asset.Version = "1.0"
	_, err = l.LoadReader("version", bytes.NewReader(embeddedGLTF(t, old)), false)
	assert.ErrorIs(t, err, errInvalidGLTFVersion)

	overrun := quadDocument(dataURI())
	overrun.Accessors[0].Count = 5
	_, err = l.LoadReader("overrun", bytes.NewReader(embeddedGLTF(t, overrun)), false)
	assert.ErrorIs(t, err, errAccessorOutOfRange)

	short := quadDocument(dataURI())
	short.Buffers[0].ByteLength = 64
	_, err = l.LoadReader("short_buffer", bytes.NewReader(embeddedGLTF(t, short)), false)
	assert.ErrorIs(t, err, errBufferSizeMismatch)

	_, err = l.Load("model.obj")
	assert.ErrorContains(t, err, "unsupported model format")

	assert.Empty(t, l.Models(), "failed loads are not cached")
}

func TestDracoPrimitiveIsReported(t *testing.T) {
	doc := quadDocument(dataURI())
	doc.Meshes[0].Primitives[0].Extensions = map[string]json.RawMessage{
		gltfExtDracoMeshCompression: json.RawMessage(`{"bufferView":0,"attributes":{"POSITION":0}}`),
	}

	_, err := NewLoader(BackendTypeGLTF).LoadReader("draco", bytes.NewReader(embeddedGLTF(t, doc)), false)
	assert.ErrorIs(t, err, ErrDracoUnsupported)
}

func TestNonIndexedAndPointPrimitives(t *testing.T) {
	doc := quadDocument(dataURI())
	doc.Meshes[0].Primitives[0].Indices = nil
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, gltfPrimitive{
		Attributes: map[string]int{"POSITION": 0},
		Mode:       intPtr(0),
	})

	m, err := NewLoader(BackendTypeGLTF).LoadReader("points", bytes.NewReader(embeddedGLTF(t, doc)), false)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TriangleCount(), "four vertices make one sequential triangle per instance; points are skipped")
}

func TestStripAndFanTriangulation(t *testing.T) {
	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 3, 2, 3, 4}, stripToTriangles([]uint32{0, 1, 2, 3, 4}))
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, fanToTriangles([]uint32{0, 1, 2, 3}))
	assert.Empty(t, stripToTriangles([]uint32{0, 1}))
	assert.Empty(t, fanToTriangles(nil))
}

func TestNormalizedComponents(t *testing.T) {
	v, err := decodeComponent([]byte{0xff, 0x7f}, gltfComponentTypeShort, true)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, eps)

	v, err = decodeComponent([]byte{0x80}, gltfComponentTypeByte, true)
	require.NoError(t, err)
	assert.InDelta(t, -1, v, eps)

	v, err = decodeComponent([]byte{255}, gltfComponentTypeUnsignedByte, false)
	require.NoError(t, err)
	assert.InDelta(t, 255, v, eps)

	_, err = decodeComponent([]byte{0, 0, 0, 0}, gltfComponentTypeUnsignedInt, false)
	assert.Error(t, err)
}

func TestRootsFallBackToParentlessNodes(t *testing.T) {
	doc := quadDocument(dataURI())
	doc.Scene = nil
	doc.Scenes = nil
	assert.Equal(t, []int{0}, gltfRootNodes(doc))
	assert.Equal(t, "fallback", gltfExtractModelName(doc, "fallback"))
	assert.Equal(t, "unnamed_model", gltfExtractModelName(doc, ""))
}

func TestBatchCompletesOnce(t *testing.T) {
	dir := t.TempDir()
	glb := writeFile(t, dir, "a.glb", buildGLB(t, quadDocument(""), quadBuffer()))
	gltf := writeFile(t, dir, "b.gltf", embeddedGLTF(t, quadDocument(dataURI())))
	missing := filepath.Join(dir, "c.glb")

	l := NewLoader(BackendTypeGLTF, WithWorkers(2))

	var calls atomic.Int32
	done := make(chan []BatchResult, 1)
	var batchErr error
	l.Batch([]string{glb, gltf, missing}, func(results []BatchResult, err error) {
		calls.Add(1)
		batchErr = err
		done <- results
	})

	var results []BatchResult
	select {
	case results = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}

	require.Len(t, results, 3)
	assert.Equal(t, glb, results[0].Path)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Node)
	assert.NoError(t, results[1].Err)
	assert.Nil(t, results[2].Node)
	assert.True(t, errors.Is(results[2].Err, fs.ErrNotExist))
	assert.ErrorIs(t, batchErr, fs.ErrNotExist)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.NotNil(t, l.Get(glb))
}

func TestBatchEmpty(t *testing.T) {
	done := make(chan error, 1)
	NewLoader(BackendTypeGLTF).Batch(nil, func(results []BatchResult, err error) {
		assert.Empty(t, results)
		done <- err
	})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("empty batch did not complete")
	}
}

func TestWithModelPrepopulatesCache(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	m, err := l.LoadReader("quad", bytes.NewReader(embeddedGLTF(t, quadDocument(dataURI()))), false)
	require.NoError(t, err)

	seeded := NewLoader(BackendTypeGLTF, WithModel("seed.glb", m))
	assert.Same(t, m, seeded.Get("seed.glb"))

	root, err := seeded.LoadScene("seed.glb")
	require.NoError(t, err)
	assert.Len(t, root.Children(), 2)
}
