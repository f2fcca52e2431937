package backend

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestCheckAdapter(t *testing.T) {
	tests := []struct {
		name    string
		kind    wgpu.AdapterType
		wantErr bool
	}{
		{name: "discrete", kind: wgpu.AdapterTypeDiscreteGPU},
		{name: "integrated", kind: wgpu.AdapterTypeIntegratedGPU},
		{name: "unknown", kind: wgpu.AdapterTypeUnknown},
		{name: "cpu", kind: wgpu.AdapterTypeCPU, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAdapter(wgpu.AdapterInfo{Name: "llvmpipe", AdapterType: tt.kind})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrSoftwareAdapter)
			assert.ErrorContains(t, err, "llvmpipe")
		})
	}
}

func TestPickSurfaceFormat(t *testing.T) {
	got := pickSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm})
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, got)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, pickSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float}))
}
