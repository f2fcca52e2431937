package device

import (
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is the window a device presents into.
type SurfaceSource interface {
	// SurfaceDescriptor returns the platform surface descriptor, nil for sources without a native window.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// DisplayModes lists the video modes of the monitor the window is on.
	DisplayModes() []common.DisplayMode

	// SetFullscreen switches the window between fullscreen on its monitor and windowed.
	//
	// Parameters:
	//   - enabled: true for fullscreen
	//   - mode: the negotiated display mode, refresh 0/1 meaning any rate
	//
	// Returns:
	//   - error: error if the switch failed
	SetFullscreen(enabled bool, mode common.DisplayMode) error
}

// HeadlessSurface is a SurfaceSource without a native window, used with the headless backend.
type HeadlessSurface struct {
	Modes      []common.DisplayMode
	Fullscreen bool
}

var _ SurfaceSource = &HeadlessSurface{}

func (s *HeadlessSurface) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (s *HeadlessSurface) DisplayModes() []common.DisplayMode {
	return s.Modes
}

func (s *HeadlessSurface) SetFullscreen(enabled bool, _ common.DisplayMode) error {
	s.Fullscreen = enabled
	return nil
}

// NegotiateDisplayMode picks the refresh rate for width x height from modes. When several modes
// match, the last listed one wins. The second return is false when nothing matched, in which
// case the refresh rate is 0/1 (unrestricted).
//
// Parameters:
//   - modes: the monitor's video modes
//   - width: requested width in pixels
//   - height: requested height in pixels
//
// Returns:
//   - common.DisplayMode: the negotiated mode
//   - bool: whether an exact width/height match was found
func NegotiateDisplayMode(modes []common.DisplayMode, width, height uint32) (common.DisplayMode, bool) {
	mode := common.DisplayMode{
		Width:              width,
		Height:             height,
		RefreshNumerator:   0,
		RefreshDenominator: 1,
	}
	found := false
	for _, m := range modes {
		if m.Width == width && m.Height == height {
			mode.RefreshNumerator = m.RefreshNumerator
			mode.RefreshDenominator = m.RefreshDenominator
			found = true
		}
	}
	if mode.RefreshDenominator == 0 {
		mode.RefreshNumerator, mode.RefreshDenominator = 0, 1
	}
	return mode, found
}
