package shader

import (
	_ "embed"

	"github.com/Carmen-Shannon/lumen/engine/mesh"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
)

//go:embed assets/light.wgsl
var lightSource string

//go:embed assets/skybox.wgsl
var skyboxSource string

//go:embed assets/tonemap.wgsl
var toneMapSource string

// Bind group indices shared by the mesh programs.
const (
	// GroupFrame holds per-frame uniforms (camera, light).
	GroupFrame uint32 = 0
	// GroupObject holds the per-draw uniform, the sampler and the textures.
	GroupObject uint32 = 1
)

// Bindings of the mesh programs.
const (
	BindingCamera uint32 = 0
	BindingLight  uint32 = 1

	BindingObject  uint32 = 0
	BindingSampler uint32 = 1
	// BindingFirstTexture is the binding of slot 0. Slot i is bound at BindingFirstTexture+i.
	BindingFirstTexture uint32 = 2
)

// Bindings of the tone-map program, all in group 0.
const (
	BindingToneMapParams  uint32 = 0
	BindingToneMapSampler uint32 = 1
	BindingToneMapHDR     uint32 = 2
)

// Program names.
const (
	ProgramLight   = "light"
	ProgramSkybox  = "skybox"
	ProgramToneMap = "tonemap"
)

// Sources returns the raw embedded WGSL of every program keyed by name.
func Sources() map[string]string {
	return map[string]string{
		ProgramLight:   lightSource,
		ProgramSkybox:  skyboxSource,
		ProgramToneMap: toneMapSource,
	}
}

func objectGroup(textures int) []backend.BindingLayout {
	entries := []backend.BindingLayout{
		{Binding: BindingObject, Type: backend.BindingTypeUniform, Visibility: backend.ShaderStageVertex | backend.ShaderStageFragment},
		{Binding: BindingSampler, Type: backend.BindingTypeSampler, Visibility: backend.ShaderStageFragment},
	}
	for i := range textures {
		entries = append(entries, backend.BindingLayout{
			Binding:    BindingFirstTexture + uint32(i),
			Type:       backend.BindingTypeTexture,
			Visibility: backend.ShaderStageFragment,
		})
	}
	return entries
}

// NewLightProgram builds the lit geometry program with one texture binding per mesh.TextureSlot.
//
// Parameters:
//   - options: extra options applied after the defaults (e.g. WithStrictValidation)
//
// Returns:
//   - Program: the light program
//   - error: error if the embedded source does not validate
func NewLightProgram(options ...ProgramBuilderOption) (Program, error) {
	opts := []ProgramBuilderOption{
		WithVertexLayouts(mesh.VertexLayout()),
		WithBindGroup(GroupFrame,
			backend.BindingLayout{Binding: BindingCamera, Type: backend.BindingTypeUniform, Visibility: backend.ShaderStageVertex | backend.ShaderStageFragment},
			backend.BindingLayout{Binding: BindingLight, Type: backend.BindingTypeUniform, Visibility: backend.ShaderStageFragment},
		),
		WithBindGroup(GroupObject, objectGroup(mesh.SlotCount)...),
		WithTextureSlots(mesh.SlotCount),
	}
	return NewProgram(ProgramLight, lightSource, append(opts, options...)...)
}

// NewSkyboxProgram builds the environment program. It reads position and uv only.
//
// Parameters:
//   - options: extra options applied after the defaults
//
// Returns:
//   - Program: the skybox program
//   - error: error if the embedded source does not validate
func NewSkyboxProgram(options ...ProgramBuilderOption) (Program, error) {
	full := mesh.VertexLayout()
	layout := backend.VertexLayout{
		ArrayStride: full.ArrayStride,
		Attributes:  full.Attributes[:2],
	}
	opts := []ProgramBuilderOption{
		WithVertexLayouts(layout),
		WithBindGroup(GroupFrame,
			backend.BindingLayout{Binding: BindingCamera, Type: backend.BindingTypeUniform, Visibility: backend.ShaderStageVertex | backend.ShaderStageFragment},
		),
		WithBindGroup(GroupObject, objectGroup(1)...),
		WithTextureSlots(1),
	}
	return NewProgram(ProgramSkybox, skyboxSource, append(opts, options...)...)
}

// NewToneMapProgram builds the full-screen tone-map program. It generates its four
// strip vertices from the vertex index and needs no vertex buffer.
//
// Parameters:
//   - options: extra options applied after the defaults
//
// Returns:
//   - Program: the tone-map program
//   - error: error if the embedded source does not validate
func NewToneMapProgram(options ...ProgramBuilderOption) (Program, error) {
	opts := []ProgramBuilderOption{
		WithBindGroup(0,
			backend.BindingLayout{Binding: BindingToneMapParams, Type: backend.BindingTypeUniform, Visibility: backend.ShaderStageFragment},
			backend.BindingLayout{Binding: BindingToneMapSampler, Type: backend.BindingTypeSampler, Visibility: backend.ShaderStageFragment},
			backend.BindingLayout{Binding: BindingToneMapHDR, Type: backend.BindingTypeTexture, Visibility: backend.ShaderStageFragment},
		),
		WithTextureSlots(1),
		WithTopology(backend.TopologyTriangleStrip),
	}
	return NewProgram(ProgramToneMap, toneMapSource, append(opts, options...)...)
}
