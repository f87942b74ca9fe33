package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-annotate/engine/model"
	"github.com/Carmen-Shannon/oxy-annotate/engine/scene"
	"github.com/rs/zerolog"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// cacheEntry keeps the baked model together with the source hierarchy so LoadScene can
// rebuild node trees without importing the file again.
type cacheEntry struct {
	model    model.Model
	imported *model.ImportedModel

	// meshModels holds one Model per imported mesh, shared by every scene tree built from the entry.
	meshModels []model.Model
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger zerolog.Logger

	modelCache map[string]*cacheEntry

	backend loaderBackend

	// loadPool runs Batch imports. Workers idle-exit between batches.
	loadPool worker.DynamicWorkerPool
	workers  int
}

// Loader defines the public-facing interface for loading and caching 3D models.
// It abstracts the file format (glTF, GLB) behind a backend and caches results by path
// or by the name given to LoadReader. Safe for concurrent use.
type Loader interface {
	// Load imports a model file and caches the result. A cached model is returned as-is.
	// The returned Model holds every mesh instance of the default scene baked into model space.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error)

	// LoadScene imports a model file, or reuses the cached import, and returns a new scene
	// node tree mirroring the file's node hierarchy. The returned root is named after the
	// model and carries an identity transform.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - scene.Node: the root of the new tree
	//   - error: error if loading fails
	LoadScene(path string) (scene.Node, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model

	// Batch loads every path concurrently and calls onComplete once when all have finished.
	// See Batch for the callback contract.
	//
	// Parameters:
	//   - paths: the files to load
	//   - onComplete: the completion callback
	Batch(paths []string, onComplete BatchCallback)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:     zerolog.Nop(),
		modelCache: make(map[string]*cacheEntry),
		workers:    defaultBatchWorkers,
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	default:
		panic(fmt.Sprintf("loader: unknown backend type %d", backendType))
	}

	for _, option := range options {
		option(l)
	}

	// Initialize the load pool after options so WithWorkers can override the default.
	l.loadPool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	entry, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return entry.model, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error) {
	if entry := l.cached(name); entry != nil {
		return entry.model, nil
	}

	imported, err := l.backend.LoadReader(name, r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, imported).model, nil
}

func (l *loader) LoadScene(path string) (scene.Node, error) {
	entry, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return entry.sceneTree(), nil
}

func (l *loader) Get(name string) model.Model {
	if entry := l.cached(name); entry != nil {
		return entry.model
	}
	return nil
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v.model
	}
	return result
}

// load returns the cache entry for path, importing the file on a miss.
func (l *loader) load(path string) (*cacheEntry, error) {
	if entry := l.cached(path); entry != nil {
		return entry, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, imported), nil
}

func (l *loader) cached(key string) *cacheEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[key]
}

// store converts and caches an import. When two goroutines race on the same key the first
// stored entry wins so every caller sees the same Model.
func (l *loader) store(key string, imported *model.ImportedModel) *cacheEntry {
	entry := newCacheEntry(imported)

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.modelCache[key]; ok {
		return existing
	}
	l.modelCache[key] = entry

	l.logger.Debug().
		Str("key", key).
		Str("model", imported.Name).
		Int("meshes", len(imported.Meshes)).
		Int("nodes", len(imported.Nodes)).
		Int("triangles", entry.model.TriangleCount()).
		Msg("model loaded")
	return entry
}

// resolveBackend selects an appropriate loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}

func newCacheEntry(imported *model.ImportedModel) *cacheEntry {
	meshModels := make([]model.Model, len(imported.Meshes))
	for i, m := range imported.Meshes {
		meshModels[i] = model.NewModel(
			model.WithName(m.Name),
			model.WithMesh(m),
		)
	}

	return &cacheEntry{
		model: model.NewModel(
			model.WithName(imported.Name),
			model.WithMeshes(imported.WorldMeshes()),
		),
		imported:   imported,
		meshModels: meshModels,
	}
}

// sceneTree builds a fresh node tree from the cached hierarchy. Nodes referenced more than
// once are instanced again under each parent, guarded against cycles.
func (e *cacheEntry) sceneTree() scene.Node {
	root := scene.NewNode(e.imported.Name)

	if len(e.imported.Nodes) == 0 {
		for _, m := range e.meshModels {
			root.AddChild(scene.NewNode(m.Name(), scene.WithModel(m)))
		}
		return root
	}

	onPath := make([]bool, len(e.imported.Nodes))
	var build func(idx int) scene.Node
	build = func(idx int) scene.Node {
		if idx < 0 || idx >= len(e.imported.Nodes) || onPath[idx] {
			return nil
		}
		onPath[idx] = true
		defer func() { onPath[idx] = false }()

		src := e.imported.Nodes[idx]
		options := []scene.NodeBuilderOption{scene.WithTransform(src.Transform)}
		if src.Matrix != nil {
			options = append(options, scene.WithMatrix(*src.Matrix))
		}
		if src.Mesh >= 0 && src.Mesh < len(e.meshModels) {
			options = append(options, scene.WithModel(e.meshModels[src.Mesh]))
		}

		n := scene.NewNode(src.Name, options...)
		for _, c := range src.Children {
			if child := build(c); child != nil {
				n.AddChild(child)
			}
		}
		return n
	}

	for _, r := range e.imported.Roots {
		if n := build(r); n != nil {
			root.AddChild(n)
		}
	}
	return root
}
