package scene

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-annotate/common"
)

// parallelRootThreshold is the root count at which Raycast fans out across the compute pool.
const parallelRootThreshold = 4

// Scene manages a named list of root Nodes and answers ray queries against their geometry.
// Nodes added to the scene receive a unique ID and can be looked up by ID or name.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Count returns the number of nodes in the scene, descendants included.
	//
	// Returns:
	//   - int: total node count
	Count() int

	// Add attaches nodes as roots of the scene. Each node and its descendants without an ID
	// are assigned one. A node that is already a root is not added twice.
	//
	// Parameters:
	//   - nodes: the nodes to add
	Add(nodes ...Node)

	// Get retrieves a node by its ID, searching the whole hierarchy.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the node's unique ID
	//
	// Returns:
	//   - Node: the node or nil
	Get(id uint64) Node

	// Find retrieves the first node with the given name, depth-first over the roots in order.
	// Returns nil if not found.
	//
	// Parameters:
	//   - name: the node name
	//
	// Returns:
	//   - Node: the node or nil
	Find(name string) Node

	// Remove detaches a root node from the scene.
	//
	// Parameters:
	//   - n: the root to remove
	//
	// Returns:
	//   - bool: true if n was a root of the scene
	Remove(n Node) bool

	// Nodes returns a copy of the root list.
	//
	// Returns:
	//   - []Node: the roots in insertion order
	Nodes() []Node

	// Clear removes all nodes from the scene.
	Clear()

	// Raycast intersects the ray with every enabled node's geometry and returns all hits
	// sorted by ascending distance. With recursive unset only the roots are tested.
	//
	// Parameters:
	//   - ray: world-space ray with a unit direction
	//   - recursive: true to descend into children
	//
	// Returns:
	//   - []Intersection: hits, nearest first; empty when nothing is hit
	Raycast(ray common.Ray, recursive bool) []Intersection
}

type scene struct {
	mu *sync.RWMutex

	name   string
	roots  []*node
	nextID uint64

	// computePool fans Raycast out across root subtrees for large scenes.
	// Workers persist across frames, avoiding per-frame goroutine spawn overhead.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		nextID:         1,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Count() int {
	count := 0
	for _, r := range s.rootsSnapshot() {
		r.walk(func(Node) bool {
			count++
			return true
		})
	}
	return count
}

func (s *scene) Add(nodes ...Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(nodes...)
}

// addLocked assigns IDs and appends roots. Caller must hold the write lock.
func (s *scene) addLocked(nodes ...Node) {
	for _, n := range nodes {
		nd, ok := n.(*node)
		if !ok || nd == nil || slices.Contains(s.roots, nd) {
			continue
		}
		if p := nd.parentNode(); p != nil {
			p.RemoveChild(nd)
		}
		nd.walk(func(visited Node) bool {
			v := visited.(*node)
			if v.ID() == 0 {
				v.setID(s.nextID)
				s.nextID++
			}
			return true
		})
		s.roots = append(s.roots, nd)
	}
}

func (s *scene) Get(id uint64) Node {
	if id == 0 {
		return nil
	}
	var found Node
	for _, r := range s.rootsSnapshot() {
		r.walk(func(visited Node) bool {
			if visited.ID() == id {
				found = visited
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func (s *scene) Find(name string) Node {
	for _, r := range s.rootsSnapshot() {
		if found := r.Find(name); found != nil {
			return found
		}
	}
	return nil
}

func (s *scene) Remove(n Node) bool {
	nd, ok := n.(*node)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.roots, nd)
	if idx < 0 {
		return false
	}
	s.roots = slices.Delete(s.roots, idx, idx+1)
	return true
}

func (s *scene) Nodes() []Node {
	roots := s.rootsSnapshot()
	out := make([]Node, len(roots))
	for i, r := range roots {
		out[i] = r
	}
	return out
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = nil
}

func (s *scene) Raycast(ray common.Ray, recursive bool) []Intersection {
	roots := s.rootsSnapshot()

	var hits []Intersection
	if len(roots) < parallelRootThreshold {
		for _, r := range roots {
			hits = intersectNode(r, nil, ray, recursive, hits)
		}
	} else {
		// Each root writes its own slot so the merged order matches the sequential traversal.
		// A WaitGroup provides the barrier since pool.Wait() blocks until workers idle-exit.
		perRoot := make([][]Intersection, len(roots))
		var wg sync.WaitGroup
		for i, r := range roots {
			wg.Add(1)
			idx, root := i, r
			s.computePool.SubmitTask(worker.Task{
				ID: idx,
				Do: func() (any, error) {
					defer wg.Done()
					perRoot[idx] = intersectNode(root, nil, ray, recursive, nil)
					return nil, nil
				},
			})
		}
		wg.Wait()
		for _, h := range perRoot {
			hits = append(hits, h...)
		}
	}

	sortIntersections(hits)
	return hits
}

// rootsSnapshot copies the root list under the read lock.
func (s *scene) rootsSnapshot() []*node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roots)
}
