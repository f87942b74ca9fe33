package camera

import (
	"sync"

	"github.com/chewxy/math32"
)

// dampingEpsilon is the pending angular velocity below which damped motion stops.
const dampingEpsilon = 1e-6

// cameraControllerImpl is the single implementation of CameraController.
// Supports both orbit and planar controls simultaneously. Orbit methods modify
// spherical coordinates and recompute position; planar methods translate both
// position and target along local camera axes, preserving the orbit relationship.
type cameraControllerImpl struct {
	mu *sync.Mutex

	// Camera position (computed from target + spherical coords)
	position [3]float32
	target   [3]float32

	// Spherical coordinates (offset from target)
	radius    float32
	azimuth   float32 // Horizontal angle around Y axis
	elevation float32 // Vertical angle from horizontal plane

	// Orbit constraints
	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	// Orbit speed settings
	orbitSpeed float32
	zoomSpeed  float32

	// Planar speed
	panSpeed float32

	// Damped orbit velocity, drained by Update
	damping        bool
	dampingFactor  float32
	azimuthDelta   float32
	elevationDelta float32

	// Explicit eye point, resolved into spherical coordinates after options apply
	initialPosition *[3]float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller with sensible defaults.
// The returned controller supports both orbit and planar controls simultaneously.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:     &sync.Mutex{},
		target: [3]float32{0, 0, 0},

		radius:    10.0,
		azimuth:   0.0,
		elevation: math32.Pi / 6,

		minRadius:    0.5,
		maxRadius:    500.0,
		minElevation: -math32.Pi/2 + 0.01,
		maxElevation: math32.Pi/2 - 0.01,

		orbitSpeed: 0.03,
		zoomSpeed:  1.0,

		panSpeed: 1.0,

		dampingFactor: 0.05,
	}

	for _, option := range options {
		option(cc)
	}

	if cc.initialPosition != nil {
		cc.syncSpherical(*cc.initialPosition)
		cc.initialPosition = nil
	}

	cc.updatePosition()
	return cc
}

// NewOrbitController creates a new camera controller configured for orbit-style control.
// This is a convenience wrapper around NewCameraController.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewOrbitController(options ...CameraControllerOption) CameraController {
	return NewCameraController(options...)
}

// --- internal helpers ---

// updatePosition recomputes the camera position from spherical coordinates.
// Must be called whenever radius, azimuth, elevation, or target changes.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev := math32.Cos(cc.elevation)
	sinElev := math32.Sin(cc.elevation)
	cosAzim := math32.Cos(cc.azimuth)
	sinAzim := math32.Sin(cc.azimuth)

	cc.position[0] = cc.target[0] + cc.radius*cosElev*sinAzim
	cc.position[1] = cc.target[1] + cc.radius*sinElev
	cc.position[2] = cc.target[2] + cc.radius*cosElev*cosAzim
}

// syncSpherical derives radius, azimuth and elevation from an eye point relative to the target.
// The radius is not clamped so the eye point is reproduced exactly.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) syncSpherical(eye [3]float32) {
	ox := eye[0] - cc.target[0]
	oy := eye[1] - cc.target[1]
	oz := eye[2] - cc.target[2]
	r := math32.Sqrt(ox*ox + oy*oy + oz*oz)
	if r < 1e-8 {
		return
	}
	cc.radius = r
	cc.azimuth = math32.Atan2(ox, oz)
	cc.elevation = math32.Asin(clamp(oy/r, -1, 1))
}

// clampElevation keeps elevation inside the configured bounds.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) clampElevation() {
	cc.elevation = clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

// clampRadius keeps radius inside the configured bounds.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) clampRadius() {
	cc.radius = clamp(cc.radius, cc.minRadius, cc.maxRadius)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// localAxes computes the camera's local coordinate axes consistent with the LookAt matrix.
// Returns right, up, and forward vectors.
// If position and target coincide, all returned components are zero.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) localAxes() (right, up, forward [3]float32) {
	// backward = normalize(position - target), matching LookAt's z-axis
	bx := cc.position[0] - cc.target[0]
	by := cc.position[1] - cc.target[1]
	bz := cc.position[2] - cc.target[2]
	bLen := math32.Sqrt(bx*bx + by*by + bz*bz)
	if bLen < 1e-8 {
		return
	}
	bx /= bLen
	by /= bLen
	bz /= bLen

	// right = normalize(cross(worldUp, backward)) = (bz, 0, -bx)
	rx, rz := bz, -bx
	rLen := math32.Sqrt(rx*rx + rz*rz)
	if rLen < 1e-8 {
		return
	}
	rx /= rLen
	rz /= rLen
	right = [3]float32{rx, 0, rz}

	// up = cross(backward, right), matching LookAt's y-axis
	up = [3]float32{by * rz, bz*rx - bx*rz, -by * rx}

	forward = [3]float32{-bx, -by, -bz}
	return
}

// translate moves position and target by the same offset.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) translate(axis [3]float32, offset float32) {
	for i := 0; i < 3; i++ {
		cc.target[i] += axis[i] * offset
		cc.position[i] += axis[i] * offset
	}
}

// --- CameraController shared methods ---

func (cc *cameraControllerImpl) Position() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position[0], cc.position[1], cc.position[2]
}

func (cc *cameraControllerImpl) SetPosition(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.syncSpherical([3]float32{x, y, z})
	cc.position = [3]float32{x, y, z}
}

func (cc *cameraControllerImpl) Target() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target[0], cc.target[1], cc.target[2]
}

func (cc *cameraControllerImpl) SetTarget(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = [3]float32{x, y, z}
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clampRadius()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Update() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.damping {
		return false
	}
	if math32.Abs(cc.azimuthDelta) < dampingEpsilon && math32.Abs(cc.elevationDelta) < dampingEpsilon {
		cc.azimuthDelta = 0
		cc.elevationDelta = 0
		return false
	}

	cc.azimuth += cc.azimuthDelta * cc.dampingFactor
	cc.elevation += cc.elevationDelta * cc.dampingFactor
	cc.clampElevation()
	cc.azimuthDelta *= 1 - cc.dampingFactor
	cc.elevationDelta *= 1 - cc.dampingFactor

	cc.updatePosition()
	return true
}

// --- orbitCameraController implementation ---

func (cc *cameraControllerImpl) OrbitLeft() {
	cc.Rotate(-cc.OrbitSpeed(), 0)
}

func (cc *cameraControllerImpl) OrbitRight() {
	cc.Rotate(cc.OrbitSpeed(), 0)
}

func (cc *cameraControllerImpl) Rotate(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.damping {
		cc.azimuthDelta += dAzimuth
		cc.elevationDelta += dElevation
		return
	}
	cc.azimuth += dAzimuth
	cc.elevation += dElevation
	cc.clampElevation()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) DampingEnabled() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.damping
}

func (cc *cameraControllerImpl) DampingFactor() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.dampingFactor
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = radius
	cc.clampRadius()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) MinRadius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minRadius
}

func (cc *cameraControllerImpl) MaxRadius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxRadius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) SetAzimuth(azimuth float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = azimuth
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) SetElevation(elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = elevation
	cc.clampElevation()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) MinElevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minElevation
}

func (cc *cameraControllerImpl) MaxElevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxElevation
}

func (cc *cameraControllerImpl) OrbitSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbitSpeed
}

func (cc *cameraControllerImpl) ZoomSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoomSpeed
}

// --- planarCameraController implementation ---

func (cc *cameraControllerImpl) PanRight(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, _, _ := cc.localAxes()
	cc.translate(right, delta*cc.panSpeed)
}

func (cc *cameraControllerImpl) PanSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.panSpeed
}
