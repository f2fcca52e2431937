// Package texture decodes image files, uploads them as GPU textures and shares them
// between meshes through a reference-counted cache.
package texture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/Carmen-Shannon/lumen/common"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned for images with a zero dimension.
var ErrEmptyImage = errors.New("image has no pixels")

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	maxSize int
}

// WithMaxSize downscales images whose larger side exceeds size, keeping the aspect ratio.
//
// Parameters:
//   - size: the largest allowed side in pixels, 0 disables scaling
//
// Returns:
//   - DecodeOption: the option
func WithMaxSize(size int) DecodeOption {
	return func(c *decodeConfig) {
		c.maxSize = size
	}
}

// Decode reads a png, jpeg, bmp, tiff or webp image and converts it to tightly packed RGBA8.
//
// Parameters:
//   - r: the encoded image
//   - options: decode options
//
// Returns:
//   - common.TextureStagingData: the RGBA8 pixels ready for upload
//   - error: error if the format is unknown or the data is corrupt
func Decode(r io.Reader, options ...DecodeOption) (common.TextureStagingData, error) {
	cfg := decodeConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return common.TextureStagingData{}, fmt.Errorf("decode %s image: %w", format, ErrEmptyImage)
	}

	w, h := bounds.Dx(), bounds.Dy()
	if cfg.maxSize > 0 && max(w, h) > cfg.maxSize {
		if w >= h {
			w, h = cfg.maxSize, max(1, h*cfg.maxSize/w)
		} else {
			w, h = max(1, w*cfg.maxSize/h), cfg.maxSize
		}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	}

	return common.TextureStagingData{
		Pixels:        rgba.Pix,
		Width:         uint32(w),
		Height:        uint32(h),
		BytesPerPixel: 4,
	}, nil
}

// DecodeFile opens and decodes the image at path.
//
// Parameters:
//   - path: the image file path
//   - options: decode options
//
// Returns:
//   - common.TextureStagingData: the RGBA8 pixels ready for upload
//   - error: error if the file cannot be read or decoded
func DecodeFile(path string, options ...DecodeOption) (common.TextureStagingData, error) {
	f, err := os.Open(path)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	defer f.Close()

	data, err := Decode(f, options...)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
