package device

import "fmt"

// Stage descriptions carried by InitError.
const (
	StageInvalidConfig = "Invalid device configuration"
	StageAdapter       = "Failed to find a graphics adapter"
	StageDevice        = "Failed to create device and swap chain"
	StageFullscreen    = "Failed to switch to fullscreen"
	StageSwapchain     = "Failed to configure swap chain"
)

// InitError is returned by NewDevice. Stage is a human-readable description of the creation step
// that failed and Err its cause.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return e.Stage
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
