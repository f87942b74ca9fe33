package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-annotate/common"
	"github.com/Carmen-Shannon/oxy-annotate/engine/model"
)

// Side selects which triangle faces a ray test accepts.
type Side int

const (
	// FrontSide accepts only counter-clockwise faces as seen from the ray origin.
	FrontSide Side = iota
	// BackSide accepts only clockwise faces.
	BackSide
	// DoubleSide accepts both.
	DoubleSide
)

func (s Side) String() string {
	switch s {
	case FrontSide:
		return "front"
	case BackSide:
		return "back"
	case DoubleSide:
		return "double"
	}
	return "unknown"
}

type node struct {
	mu *sync.RWMutex

	id      uint64
	name    string
	enabled bool
	side    Side
	mdl     model.Model

	transform model.Transform
	matrix    *[16]float32 // explicit local matrix, overrides transform when set

	parent   *node
	children []*node

	// Line segments in local space, hit when a ray passes within lineThreshold of them.
	lines         [][2][3]float32
	lineThreshold float32
}

// Node defines a scene graph entry: a named local transform with an optional Model,
// child nodes, and ray casting flags. World transforms are derived from the parent chain.
// Thread-safe for concurrent access.
type Node interface {
	// ID returns the identifier assigned by the Scene, or 0 if the node was never added.
	//
	// Returns:
	//   - uint64: the node ID
	ID() uint64

	// Name returns the node's name.
	//
	// Returns:
	//   - string: the node name
	Name() string

	// SetName sets the node's name.
	//
	// Parameters:
	//   - name: the new name
	SetName(name string)

	// Enabled reports whether the node and its subtree take part in ray casting.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled toggles ray casting for the node and its subtree.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// Side returns which triangle faces are hit by rays.
	//
	// Returns:
	//   - Side: the face side
	Side() Side

	// SetSide sets which triangle faces are hit by rays.
	//
	// Parameters:
	//   - side: the face side
	SetSide(side Side)

	// Model returns the node's geometry, or nil for a pure transform node.
	//
	// Returns:
	//   - model.Model: the model or nil
	Model() model.Model

	// SetModel assigns geometry to the node.
	//
	// Parameters:
	//   - m: the model, or nil to clear
	SetModel(m model.Model)

	// Lines returns a copy of the node's local-space line segments.
	//
	// Returns:
	//   - [][2][3]float32: segment endpoints, nil when the node has none
	Lines() [][2][3]float32

	// LineThreshold returns the world-space distance within which a ray hits a segment.
	//
	// Returns:
	//   - float32: the hit threshold
	LineThreshold() float32

	// Position returns the local translation.
	//
	// Returns:
	//   - [3]float32: the translation
	Position() [3]float32

	// SetPosition sets the local translation and clears any explicit matrix.
	//
	// Parameters:
	//   - x, y, z: the translation
	SetPosition(x, y, z float32)

	// Rotation returns the local rotation quaternion (x, y, z, w).
	//
	// Returns:
	//   - [4]float32: the rotation
	Rotation() [4]float32

	// SetRotation sets the local rotation quaternion and clears any explicit matrix.
	//
	// Parameters:
	//   - q: the rotation (x, y, z, w)
	SetRotation(q [4]float32)

	// Scale returns the local scale.
	//
	// Returns:
	//   - [3]float32: the scale
	Scale() [3]float32

	// SetScale sets the local scale and clears any explicit matrix.
	//
	// Parameters:
	//   - sx, sy, sz: the scale factors
	SetScale(sx, sy, sz float32)

	// SetMatrix replaces the local transform with an explicit column-major matrix.
	//
	// Parameters:
	//   - m: the local matrix
	SetMatrix(m [16]float32)

	// LocalMatrix returns the node's transform relative to its parent.
	//
	// Returns:
	//   - [16]float32: the local matrix
	LocalMatrix() [16]float32

	// WorldMatrix returns the node's transform relative to the scene root.
	//
	// Returns:
	//   - [16]float32: the world matrix
	WorldMatrix() [16]float32

	// Parent returns the parent node, or nil for a root.
	//
	// Returns:
	//   - Node: the parent or nil
	Parent() Node

	// Children returns a copy of the child list.
	//
	// Returns:
	//   - []Node: the children
	Children() []Node

	// AddChild attaches child under this node, detaching it from any previous parent.
	// Adding a node to itself or to one of its descendants is ignored.
	//
	// Parameters:
	//   - child: the node to attach
	AddChild(child Node)

	// RemoveChild detaches child from this node.
	//
	// Parameters:
	//   - child: the node to detach
	//
	// Returns:
	//   - bool: true if child was attached here
	RemoveChild(child Node) bool

	// Find searches this node and its descendants depth-first for a node with the given name.
	//
	// Parameters:
	//   - name: the name to look for
	//
	// Returns:
	//   - Node: the first match or nil
	Find(name string) Node

	// Walk visits this node and its descendants depth-first until fn returns false.
	//
	// Parameters:
	//   - fn: the visitor
	Walk(fn func(Node) bool)
}

var _ Node = &node{}

// NewNode creates a new enabled, front-side Node with an identity transform.
//
// Parameters:
//   - name: the node name
//   - options: functional options to configure the node
//
// Returns:
//   - Node: the newly created node
func NewNode(name string, options ...NodeBuilderOption) Node {
	n := &node{
		mu:        &sync.RWMutex{},
		name:      name,
		enabled:   true,
		side:      FrontSide,
		transform: model.IdentityTransform(),
	}
	for _, option := range options {
		option(n)
	}
	return n
}

func (n *node) ID() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.id
}

func (n *node) setID(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.id = id
}

func (n *node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

func (n *node) SetName(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.name = name
}

func (n *node) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

func (n *node) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

func (n *node) Side() Side {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.side
}

func (n *node) SetSide(side Side) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.side = side
}

func (n *node) Model() model.Model {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mdl
}

func (n *node) SetModel(m model.Model) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mdl = m
}

func (n *node) Lines() [][2][3]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.lines)
}

func (n *node) LineThreshold() float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.lineThreshold
}

func (n *node) Position() [3]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform.Translation
}

func (n *node) SetPosition(x, y, z float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transform.Translation = [3]float32{x, y, z}
	n.matrix = nil
}

func (n *node) Rotation() [4]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform.Rotation
}

func (n *node) SetRotation(q [4]float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transform.Rotation = q
	n.matrix = nil
}

func (n *node) Scale() [3]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform.Scale
}

func (n *node) SetScale(sx, sy, sz float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transform.Scale = [3]float32{sx, sy, sz}
	n.matrix = nil
}

func (n *node) SetMatrix(m [16]float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matrix = &m
}

func (n *node) LocalMatrix() [16]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.localMatrix()
}

// localMatrix returns the explicit matrix if set, otherwise the composed transform.
// Caller must hold the mutex.
func (n *node) localMatrix() [16]float32 {
	if n.matrix != nil {
		return *n.matrix
	}
	return n.transform.Matrix()
}

func (n *node) WorldMatrix() [16]float32 {
	n.mu.RLock()
	local := n.localMatrix()
	parent := n.parent
	n.mu.RUnlock()

	if parent == nil {
		return local
	}
	parentWorld := parent.WorldMatrix()
	var world [16]float32
	common.Mul4(world[:], parentWorld[:], local[:])
	return world
}

func (n *node) Parent() Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) AddChild(child Node) {
	c, ok := child.(*node)
	if !ok || c == nil || c == n || c.isAncestorOf(n) {
		return
	}

	c.mu.RLock()
	old := c.parent
	c.mu.RUnlock()
	if old != nil {
		old.RemoveChild(c)
	}

	n.mu.Lock()
	n.children = append(n.children, c)
	n.mu.Unlock()

	c.mu.Lock()
	c.parent = n
	c.mu.Unlock()
}

func (n *node) RemoveChild(child Node) bool {
	c, ok := child.(*node)
	if !ok || c == nil {
		return false
	}

	n.mu.Lock()
	idx := slices.Index(n.children, c)
	if idx < 0 {
		n.mu.Unlock()
		return false
	}
	n.children = slices.Delete(n.children, idx, idx+1)
	n.mu.Unlock()

	c.mu.Lock()
	c.parent = nil
	c.mu.Unlock()
	return true
}

// isAncestorOf reports whether n appears on other's parent chain.
func (n *node) isAncestorOf(other *node) bool {
	for p := other.parentNode(); p != nil; p = p.parentNode() {
		if p == n {
			return true
		}
	}
	return false
}

func (n *node) parentNode() *node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

func (n *node) Find(name string) Node {
	var found Node
	n.Walk(func(visited Node) bool {
		if visited.Name() == name {
			found = visited
			return false
		}
		return true
	})
	return found
}

func (n *node) Walk(fn func(Node) bool) {
	n.walk(fn)
}

// walk returns false once fn has asked to stop.
func (n *node) walk(fn func(Node) bool) bool {
	if !fn(n) {
		return false
	}
	n.mu.RLock()
	children := slices.Clone(n.children)
	n.mu.RUnlock()
	for _, c := range children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
