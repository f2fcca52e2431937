package camera

import (
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/chewxy/math32"
)

// MaxPitch keeps the forward vector away from the up axis so the view basis never degenerates.
const MaxPitch = math32.Pi/2 - 0.01

type cameraImpl struct {
	mu *sync.Mutex

	position [3]float32
	pitch    float32
	yaw      float32
	up       [3]float32

	viewMatrix [16]float32
}

// Camera is a first-person camera described by a position and a pitch/yaw rotation.
// It produces the view matrix, the projection comes from the device.
type Camera interface {
	// Position returns the world-space camera position.
	//
	// Returns:
	//   - [3]float32: x, y, z position
	Position() [3]float32

	// SetPosition moves the camera.
	//
	// Parameters:
	//   - x, y, z: new world-space position
	SetPosition(x, y, z float32)

	// Rotation returns the pitch and yaw in radians.
	//
	// Returns:
	//   - pitch: rotation about the right axis, positive looks up
	//   - yaw: rotation about the up axis
	Rotation() (pitch, yaw float32)

	// SetRotation sets the pitch and yaw in radians. Pitch is clamped to [-MaxPitch, MaxPitch].
	//
	// Parameters:
	//   - pitch: rotation about the right axis
	//   - yaw: rotation about the up axis
	SetRotation(pitch, yaw float32)

	// Forward returns the unit viewing direction.
	Forward() [3]float32

	// Right returns the unit right vector.
	Right() [3]float32

	// Up returns the camera's unit up vector.
	Up() [3]float32

	// ViewMatrix returns the current left-handed view matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// Uniform packs the view matrix, the given projection and the position for upload.
	//
	// Parameters:
	//   - projection: the projection matrix to pair with the view
	//
	// Returns:
	//   - GPUCameraUniform: the uniform block
	Uniform(projection [16]float32) GPUCameraUniform
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at the origin looking down +Z.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:  &sync.Mutex{},
		up:  [3]float32{0, 1, 0},
		yaw: math32.Pi / 2,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) Rotation() (float32, float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch, c.yaw
}

func (c *cameraImpl) SetRotation(pitch, yaw float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pitch = pitch
	c.yaw = yaw
	c.updateMatrices()
}

func (c *cameraImpl) Forward() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forward()
}

func (c *cameraImpl) Right() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.Normalize3(common.Cross3(c.up, c.forward()))
}

func (c *cameraImpl) Up() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.forward()
	return common.Cross3(f, common.Normalize3(common.Cross3(c.up, f)))
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) Uniform(projection [16]float32) GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		View:       c.viewMatrix,
		Projection: projection,
		Position:   c.position,
	}
}

// forward computes the viewing direction from pitch and yaw. Caller must hold the mutex.
func (c *cameraImpl) forward() [3]float32 {
	cp := math32.Cos(c.pitch)
	return [3]float32{
		math32.Cos(c.yaw) * cp,
		math32.Sin(c.pitch),
		math32.Sin(c.yaw) * cp,
	}
}

// updateMatrices clamps the pitch and recalculates the view matrix. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.pitch = common.Clamp(c.pitch, -MaxPitch, MaxPitch)
	common.LookToLH(c.viewMatrix[:], c.position, c.forward(), c.up)
}
