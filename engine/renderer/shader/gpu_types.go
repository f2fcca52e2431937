package shader

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUToneMapParamsSource is the canonical WGSL definition of the ToneMapParams struct.
// Matches GPUToneMapParams layout exactly (16 bytes).
//
//go:embed assets/tonemap_params.wgsl
var GPUToneMapParamsSource string

// GPUToneMapParams is the parameter block of the tone-map program.
// Size: 16 bytes.
type GPUToneMapParams struct {
	Exposure         float32 // offset  0
	AverageLuminance float32 // offset  4: must be > 0
	MaxLuminance     float32 // offset  8: must be > 0
	Burn             float32 // offset 12: in [0, 1]
}

// Size returns the size of the GPUToneMapParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUToneMapParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUToneMapParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPUToneMapParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Exposure))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.AverageLuminance))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.MaxLuminance))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Burn))
	return buf
}
