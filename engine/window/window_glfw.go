package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// DontCare disables a size limit.
const DontCare = glfw.DontCare

// Key codes delivered to the key callbacks.
const (
	KeyEscape = uint32(glfw.KeyEscape)
	Key1      = uint32(glfw.Key1)
	Key2      = uint32(glfw.Key2)
	Key3      = uint32(glfw.Key3)
	KeyF11    = uint32(glfw.KeyF11)
)

// ErrNotInitialized is returned when the platform window does not exist.
var ErrNotInitialized = errors.New("window is not initialized")

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running bool

	// windowed position and size restored when leaving fullscreen.
	windowedX, windowedY          int
	windowedWidth, windowedHeight int
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{
		parent:  w,
		window:  win,
		running: true,
	}
	w.internalWindow = gw

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press:
			if w.onKeyDown != nil {
				w.onKeyDown(uint32(key))
			}
		case glfw.Release:
			if w.onKeyUp != nil {
				w.onKeyUp(uint32(key))
			}
		}
	})

	// Framebuffer size, not window size: the surface is configured in pixels, which differ on high-DPI displays.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformDisplayModes converts the primary monitor's video modes. GLFW reports integer hertz.
func platformDisplayModes(w *engineWindow) []common.DisplayMode {
	if w.internalWindow == nil {
		return nil
	}
	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return nil
	}
	vidModes := monitor.GetVideoModes()
	modes := make([]common.DisplayMode, 0, len(vidModes))
	for _, vm := range vidModes {
		modes = append(modes, common.DisplayMode{
			Width:              uint32(vm.Width),
			Height:             uint32(vm.Height),
			RefreshNumerator:   uint32(max(vm.RefreshRate, 0)),
			RefreshDenominator: 1,
		})
	}
	return modes
}

// platformSetFullscreen switches between fullscreen on the primary monitor and the remembered windowed placement.
func platformSetFullscreen(w *engineWindow, enabled bool, mode common.DisplayMode) error {
	if w.internalWindow == nil {
		return ErrNotInitialized
	}
	gw := w.internalWindow.(*glfwWindow)

	if !enabled {
		if gw.windowedWidth == 0 {
			return nil
		}
		gw.window.SetMonitor(nil, gw.windowedX, gw.windowedY, gw.windowedWidth, gw.windowedHeight, glfw.DontCare)
		return nil
	}

	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return errors.New("no primary monitor")
	}
	gw.windowedX, gw.windowedY = gw.window.GetPos()
	gw.windowedWidth, gw.windowedHeight = gw.window.GetSize()

	refresh := glfw.DontCare
	if hz := mode.RefreshHz(); hz > 1 {
		refresh = int(hz + 0.5)
	}
	gw.window.SetMonitor(monitor, 0, 0, int(mode.Width), int(mode.Height), refresh)
	return nil
}

// platformIsRunningCheck returns whether the GLFW window is still active.
func platformIsRunningCheck(w *engineWindow) bool {
	if w.internalWindow == nil {
		return false
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.running && !gw.window.ShouldClose()
}

// platformRequestClose flags the GLFW window so the next running check fails.
func platformRequestClose(w *engineWindow) {
	if w.internalWindow == nil {
		return
	}
	w.internalWindow.(*glfwWindow).window.SetShouldClose(true)
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return ErrNotInitialized
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running = false
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	glfw.Terminate()
	w.internalWindow = nil
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
