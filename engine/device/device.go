// Package device owns the GPU adapter, logical device and swapchain of the renderer.
package device

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
)

// FieldOfView is the vertical field of view of the projection matrix.
const FieldOfView = math.Pi / 4

// Swapchain describes the presentable surface bound to the window.
type Swapchain struct {
	Width              uint32
	Height             uint32
	Format             backend.TextureFormat
	RefreshNumerator   uint32
	RefreshDenominator uint32
	VSync              bool
	Fullscreen         bool
}

// Device is the single GPU context of the process. Every other GPU object is created through its Backend.
type Device interface {
	// Backend returns the command and resource surface of the device.
	//
	// Returns:
	//   - backend.RendererBackend: the backend
	Backend() backend.RendererBackend

	// Swapchain returns a snapshot of the swapchain attributes.
	//
	// Returns:
	//   - Swapchain: width, height, format, refresh rate and vsync flag
	Swapchain() Swapchain

	// SampleCount returns the MSAA sample count used for the scene attachments.
	SampleCount() uint32

	// NearPlane returns the near clipping distance.
	NearPlane() float32

	// FarPlane returns the far clipping distance.
	FarPlane() float32

	// Present shows the current backbuffer. With vsync enabled this blocks until the vertical blank.
	//
	// Returns:
	//   - error: error if nothing was acquired or presentation failed
	Present() error

	// ResizeSwapchain reconfigures the swapchain buffers and recomputes the projection matrix.
	// Zero sizes are ignored.
	//
	// Parameters:
	//   - width: new width in pixels
	//   - height: new height in pixels
	//
	// Returns:
	//   - error: error if the surface could not be reconfigured, the previous size is kept
	ResizeSwapchain(width, height uint32) error

	// GPUName returns the adapter name cached at initialization.
	GPUName() string

	// GPUMemoryMB returns the dedicated adapter memory in megabytes cached at initialization, 0 when unknown.
	GPUMemoryMB() uint64

	// ProjectionMatrix returns the left-handed perspective matrix for the current swapchain size.
	ProjectionMatrix() [16]float32

	// OrthoMatrix returns the left-handed orthographic matrix for the current swapchain size.
	OrthoMatrix() [16]float32

	// WorldMatrix returns the base world transform.
	WorldMatrix() [16]float32

	// Release destroys the backend and leaves fullscreen.
	Release()
}

type deviceImpl struct {
	mu *sync.Mutex

	source  SurfaceSource
	backend backend.RendererBackend

	width       uint32
	height      uint32
	vsync       bool
	fullscreen  bool
	nearPlane   float32
	farPlane    float32
	sampleCount backend.MSAASampleCount

	mode    common.DisplayMode
	gpuName string
	gpuMem  uint64

	projection [16]float32
	ortho      [16]float32
	world      [16]float32
}

var _ Device = &deviceImpl{}

// NewDevice selects the adapter, negotiates the display mode and configures the swapchain for source.
// Every failing step is returned as an *InitError. There are no retries.
//
// Parameters:
//   - source: the window to present into
//   - options: functional options for size, vsync, fullscreen, depth range, MSAA and backend
//
// Returns:
//   - Device: the initialized device
//   - error: an *InitError naming the failed stage
func NewDevice(source SurfaceSource, options ...DeviceBuilderOption) (Device, error) {
	d := &deviceImpl{
		mu:          &sync.Mutex{},
		source:      source,
		width:       800,
		height:      600,
		vsync:       true,
		nearPlane:   0.3,
		farPlane:    1000,
		sampleCount: backend.MSAA4x,
	}
	for _, opt := range options {
		opt(d)
	}

	if source == nil {
		return nil, &InitError{Stage: StageInvalidConfig, Err: errors.New("missing surface source")}
	}
	if d.width == 0 || d.height == 0 {
		return nil, &InitError{Stage: StageInvalidConfig, Err: fmt.Errorf("invalid size %dx%d", d.width, d.height)}
	}
	if !(d.nearPlane > 0) || !(d.farPlane > d.nearPlane) {
		return nil, &InitError{Stage: StageInvalidConfig, Err: fmt.Errorf("invalid depth range [%g, %g]", d.nearPlane, d.farPlane)}
	}
	if d.sampleCount != backend.MSAAOff && d.sampleCount != backend.MSAA4x {
		return nil, &InitError{Stage: StageInvalidConfig, Err: fmt.Errorf("unsupported MSAA sample count %d", d.sampleCount)}
	}

	mode, exact := NegotiateDisplayMode(source.DisplayModes(), d.width, d.height)
	if !exact {
		logging.LogWarn("no display mode matches %dx%d, refresh rate falls back to unrestricted (0/1)", d.width, d.height)
	}
	d.mode = mode

	if d.backend == nil {
		desc := source.SurfaceDescriptor()
		if desc == nil {
			return nil, &InitError{Stage: StageAdapter, Err: errors.New("surface source has no native window")}
		}
		b, err := backend.NewWGPURendererBackend(desc)
		if err != nil {
			var se *backend.StageError
			if errors.As(err, &se) && se.Stage == "adapter" {
				return nil, &InitError{Stage: StageAdapter, Err: err}
			}
			return nil, &InitError{Stage: StageDevice, Err: err}
		}
		d.backend = b
	}

	if d.fullscreen {
		if err := source.SetFullscreen(true, d.mode); err != nil {
			d.backend.Release()
			return nil, &InitError{Stage: StageFullscreen, Err: err}
		}
	}

	if err := d.backend.ConfigureSurface(d.width, d.height, d.presentMode()); err != nil {
		d.backend.Release()
		return nil, &InitError{Stage: StageSwapchain, Err: err}
	}

	info := d.backend.AdapterInfo()
	d.gpuName = info.Name
	d.gpuMem = info.DedicatedMemoryMB

	common.Identity(d.world[:])
	d.updateMatrices()

	logging.With("gpu", d.gpuName, "backend", info.Backend).Info("device initialized",
		"width", d.width, "height", d.height, "vsync", d.vsync, "fullscreen", d.fullscreen,
		"refresh", fmt.Sprintf("%d/%d", d.mode.RefreshNumerator, d.mode.RefreshDenominator))

	return d, nil
}

func (d *deviceImpl) presentMode() backend.PresentMode {
	if d.vsync {
		return backend.PresentModeVSync
	}
	return backend.PresentModeUncapped
}

// updateMatrices recomputes the projection and ortho matrices. Caller holds mu or owns d exclusively.
func (d *deviceImpl) updateMatrices() {
	aspect := float32(d.width) / float32(d.height)
	common.PerspectiveLH(d.projection[:], FieldOfView, aspect, d.nearPlane, d.farPlane)
	common.OrthoLH(d.ortho[:], float32(d.width), float32(d.height), d.nearPlane, d.farPlane)
}

func (d *deviceImpl) Backend() backend.RendererBackend {
	return d.backend
}

func (d *deviceImpl) Swapchain() Swapchain {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Swapchain{
		Width:              d.width,
		Height:             d.height,
		Format:             d.backend.SurfaceFormat(),
		RefreshNumerator:   d.mode.RefreshNumerator,
		RefreshDenominator: d.mode.RefreshDenominator,
		VSync:              d.vsync,
		Fullscreen:         d.fullscreen,
	}
}

func (d *deviceImpl) SampleCount() uint32 {
	return uint32(d.sampleCount)
}

func (d *deviceImpl) NearPlane() float32 {
	return d.nearPlane
}

func (d *deviceImpl) FarPlane() float32 {
	return d.farPlane
}

func (d *deviceImpl) Present() error {
	return d.backend.Present()
}

func (d *deviceImpl) ResizeSwapchain(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.backend.ConfigureSurface(width, height, d.presentMode()); err != nil {
		return fmt.Errorf("resize swapchain to %dx%d: %w", width, height, err)
	}
	d.width = width
	d.height = height
	d.updateMatrices()
	return nil
}

func (d *deviceImpl) GPUName() string {
	return d.gpuName
}

func (d *deviceImpl) GPUMemoryMB() uint64 {
	return d.gpuMem
}

func (d *deviceImpl) ProjectionMatrix() [16]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.projection
}

func (d *deviceImpl) OrthoMatrix() [16]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ortho
}

func (d *deviceImpl) WorldMatrix() [16]float32 {
	return d.world
}

func (d *deviceImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Leave fullscreen before the surface goes away.
	if d.fullscreen {
		if err := d.source.SetFullscreen(false, d.mode); err != nil {
			logging.LogWarn("leaving fullscreen: %v", err)
		}
		d.fullscreen = false
	}
	if d.backend != nil {
		d.backend.Release()
	}
}
