package device

import "github.com/Carmen-Shannon/lumen/engine/renderer/backend"

type DeviceBuilderOption func(*deviceImpl)

// WithSize sets the initial swapchain size.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithSize(width, height uint32) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.width = width
		d.height = height
	}
}

// WithVSync selects FIFO presentation when enabled, immediate presentation otherwise.
//
// Parameters:
//   - enabled: whether present waits for vertical sync
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.vsync = enabled
	}
}

// WithFullscreen starts the window fullscreen on its monitor.
//
// Parameters:
//   - enabled: whether to start fullscreen
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithFullscreen(enabled bool) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.fullscreen = enabled
	}
}

// WithDepthRange sets the near and far clipping distances of the projection.
//
// Parameters:
//   - near: near plane distance, must be positive
//   - far: far plane distance, must be greater than near
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithDepthRange(near, far float32) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.nearPlane = near
		d.farPlane = far
	}
}

// WithMSAA sets the sample count of the scene attachments.
//
// Parameters:
//   - count: backend.MSAAOff or backend.MSAA4x
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithMSAA(count backend.MSAASampleCount) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.sampleCount = count
	}
}

// WithBackend uses an already created backend instead of creating a WebGPU one from the surface source.
//
// Parameters:
//   - b: the backend to adopt, the device takes ownership
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithBackend(b backend.RendererBackend) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.backend = b
	}
}
