package engine

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/frame"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/mesh"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/texture"
)

// SceneLoader builds the meshes of one scene. Textures go through the cache so scenes sharing
// an image share one upload.
type SceneLoader func(id frame.SceneID, be backend.RendererBackend, textures texture.Cache) ([]mesh.DrawableMesh, error)

// TextureSet is a list of decoded images handed round-robin to the meshes of the procedural scenes.
type TextureSet []texture.Decoded

// LoadTextures decodes paths on a worker pool. Files that fail to decode are logged and left out.
//
// Parameters:
//   - paths: image files
//   - workers: pool size, 0 uses GOMAXPROCS
//   - maxSize: longest edge after downscaling, 0 keeps the source size
//
// Returns:
//   - TextureSet: the decoded images in path order, duplicates removed
func LoadTextures(paths []string, workers, maxSize int) TextureSet {
	var opts []texture.DecodeOption
	if maxSize > 0 {
		opts = append(opts, texture.WithMaxSize(maxSize))
	}
	decoded, err := texture.LoadAll(paths, workers, opts...)
	if err != nil {
		logging.LogWarn("some textures failed to load: %v", err)
	}

	seen := make(map[string]bool, len(decoded))
	set := make(TextureSet, 0, len(decoded))
	for _, d := range decoded {
		if d.Err != nil || seen[d.Path] {
			continue
		}
		seen[d.Path] = true
		set = append(set, d)
	}
	return set
}

// placement is one procedural object of a demo scene.
type placement struct {
	name     string
	data     mesh.MeshData
	position [3]float32
	rotation [3]float32
	scale    [3]float32
}

func demoLayout(id frame.SceneID) []placement {
	one := [3]float32{1, 1, 1}
	switch id {
	case frame.SceneSponza:
		out := []placement{{name: "floor", data: mesh.Cube(1), position: [3]float32{0, -1, 0}, scale: [3]float32{20, 0.2, 20}}}
		for i, x := range []float32{-4, 4} {
			for j, z := range []float32{-4, 0, 4} {
				out = append(out, placement{
					name:     fmt.Sprintf("pillar-%d-%d", i, j),
					data:     mesh.Cube(1),
					position: [3]float32{x, 1, z},
					scale:    [3]float32{0.6, 4, 0.6},
				})
			}
		}
		return out
	case frame.SceneDamagedHelmet:
		return []placement{{name: "helmet", data: mesh.Sphere(1, 32, 64), scale: one}}
	case frame.SceneScifiHelmet:
		return []placement{
			{name: "visor", data: mesh.Sphere(1, 24, 48), scale: [3]float32{1, 0.8, 1}},
			{name: "crest", data: mesh.Cube(1), position: [3]float32{0, 0.9, 0}, rotation: [3]float32{0, 0.785, 0}, scale: [3]float32{0.3, 0.3, 1.2}},
		}
	}
	return nil
}

// ProceduralScenes returns a loader that builds stand-in geometry for every demo scene: a
// floor with pillars for sponza, a sphere for the damaged helmet and a sphere with a crest
// for the scifi helmet. Each object gets the next image of textures as its diffuse map; with
// no textures the slot is left empty and the fallback is bound.
//
// Parameters:
//   - textures: decoded diffuse images, may be empty
//
// Returns:
//   - SceneLoader: the loader
func ProceduralScenes(textures TextureSet) SceneLoader {
	next := 0
	return func(id frame.SceneID, be backend.RendererBackend, cache texture.Cache) ([]mesh.DrawableMesh, error) {
		layout := demoLayout(id)
		if layout == nil {
			return nil, fmt.Errorf("load %s: %w", id, frame.ErrUnknownScene)
		}

		meshes := make([]mesh.DrawableMesh, 0, len(layout))
		fail := func(err error) ([]mesh.DrawableMesh, error) {
			for _, m := range meshes {
				m.Release()
			}
			return nil, fmt.Errorf("load %s: %w", id, err)
		}

		for _, p := range layout {
			sub := mesh.SubMesh{IndexCount: uint32(len(p.data.Indices))}
			if len(textures) > 0 {
				d := textures[next%len(textures)]
				next++
				view, err := cache.Acquire(d.Path, d.Data, backend.TextureFormatRGBA8UnormSrgb)
				if err != nil {
					logging.LogWarn("scene %s: diffuse %q not bound: %v", id, d.Path, err)
				} else {
					sub.Textures[mesh.SlotDiffuse] = view
				}
			}

			m, err := mesh.NewDrawableMesh(be, p.data,
				mesh.WithName(id.String()+"/"+p.name),
				mesh.WithSubMeshes(sub),
				mesh.WithPosition(p.position[0], p.position[1], p.position[2]),
				mesh.WithRotation(p.rotation[0], p.rotation[1], p.rotation[2]),
				mesh.WithScale(p.scale[0], p.scale[1], p.scale[2]),
			)
			if err != nil {
				return fail(err)
			}
			meshes = append(meshes, m)
		}
		return meshes, nil
	}
}

// loadScenes registers every scene with the orchestrator. A scene that fails to load is logged
// and stays empty; the frame loop draws nothing for it.
func loadScenes(orch frame.Orchestrator, be backend.RendererBackend, loader SceneLoader) error {
	var errs []error
	for _, id := range frame.SceneIDs {
		meshes, err := loader(id, be, orch.Textures())
		if err != nil {
			logging.LogError("scene %s failed to load: %v", id, err)
			errs = append(errs, err)
			continue
		}
		if err := orch.RegisterScene(id, meshes...); err != nil {
			for _, m := range meshes {
				m.Release()
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// environmentData decodes the configured panorama, falling back to the procedural gradient.
func environmentData(path string, maxSize int) (common.TextureStagingData, bool) {
	if path == "" {
		return common.TextureStagingData{}, false
	}
	var opts []texture.DecodeOption
	if maxSize > 0 {
		opts = append(opts, texture.WithMaxSize(maxSize))
	}
	data, err := texture.DecodeFile(path, opts...)
	if err != nil {
		logging.LogWarn("environment %q not loaded, using the gradient sky: %v", path, err)
		return common.TextureStagingData{}, false
	}
	return data, true
}
