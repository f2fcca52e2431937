// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Color is a linear RGBA colour with float components.
type Color struct {
	R, G, B, A float32
}

// Array returns the colour as a [4]float32 for GPU parameter blocks.
func (c Color) Array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// Extent is a width/height pair in pixels.
type Extent struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is zero or negative. Minimized windows report empty extents.
func (e Extent) Empty() bool {
	return e.Width <= 0 || e.Height <= 0
}

// Aspect returns width / height, or 1 for an empty extent.
func (e Extent) Aspect() float32 {
	if e.Empty() {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

// Viewport describes the rectangle of the render target that draws are mapped to.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// ViewportFor returns a full-target viewport covering e with a [0, 1] depth range.
func ViewportFor(e Extent) Viewport {
	return Viewport{
		Width:    float32(e.Width),
		Height:   float32(e.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

// TextureStagingData holds pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the pixel data in the texture's format.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// BytesPerPixel is the size of one texel in Pixels (4 for RGBA8, 8 for RGBA16F).
	BytesPerPixel uint32
}

// BytesPerRow returns the row pitch of the staged pixel data.
func (t TextureStagingData) BytesPerRow() uint32 {
	return t.Width * t.BytesPerPixel
}

// DisplayMode is one video mode supported by a monitor. A refresh of 0/1 means the rate is unknown.
type DisplayMode struct {
	Width              uint32
	Height             uint32
	RefreshNumerator   uint32
	RefreshDenominator uint32
}

// RefreshHz returns the refresh rate in hertz, or 0 when unknown.
func (m DisplayMode) RefreshHz() float32 {
	if m.RefreshDenominator == 0 {
		return 0
	}
	return float32(m.RefreshNumerator) / float32(m.RefreshDenominator)
}
