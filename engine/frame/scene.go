package frame

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/mesh"
)

// ErrUnknownScene is returned when registering a scene id outside the SceneID range.
var ErrUnknownScene = errors.New("unknown scene")

// SceneID names one of the selectable scenes.
type SceneID int

const (
	SceneSponza SceneID = iota
	SceneDamagedHelmet
	SceneScifiHelmet
)

// SceneIDs lists every scene in selection order.
var SceneIDs = []SceneID{SceneSponza, SceneDamagedHelmet, SceneScifiHelmet}

func (s SceneID) String() string {
	switch s {
	case SceneSponza:
		return "sponza"
	case SceneDamagedHelmet:
		return "damaged-helmet"
	case SceneScifiHelmet:
		return "scifi-helmet"
	default:
		return fmt.Sprintf("scene(%d)", int(s))
	}
}

// Valid reports whether s is one of SceneIDs.
func (s SceneID) Valid() bool {
	return s >= SceneSponza && s <= SceneScifiHelmet
}

// SceneFromIndex clamps index into the SceneID range.
//
// Parameters:
//   - index: any integer, typically from a UI or key binding
//
// Returns:
//   - SceneID: the clamped scene
func SceneFromIndex(index int) SceneID {
	return SceneID(common.Clamp(index, 0, len(SceneIDs)-1))
}

// ParseScene resolves a scene by name or index.
//
// Parameters:
//   - name: a SceneID.String() value
//
// Returns:
//   - SceneID: the scene
//   - error: ErrUnknownScene if nothing matches
func ParseScene(name string) (SceneID, error) {
	for _, id := range SceneIDs {
		if id.String() == name {
			return id, nil
		}
	}
	return SceneSponza, fmt.Errorf("%q: %w", name, ErrUnknownScene)
}

// sceneRegistry maps every registered scene to the meshes it draws, in draw order.
type sceneRegistry struct {
	meshes map[SceneID][]mesh.DrawableMesh
}

func newSceneRegistry() *sceneRegistry {
	return &sceneRegistry{meshes: make(map[SceneID][]mesh.DrawableMesh, len(SceneIDs))}
}

func (r *sceneRegistry) register(id SceneID, meshes []mesh.DrawableMesh) error {
	if !id.Valid() {
		return fmt.Errorf("register %s: %w", id, ErrUnknownScene)
	}
	r.meshes[id] = append(r.meshes[id], meshes...)
	return nil
}

func (r *sceneRegistry) get(id SceneID) []mesh.DrawableMesh {
	return r.meshes[id]
}

func (r *sceneRegistry) release() {
	for id, meshes := range r.meshes {
		for _, m := range meshes {
			m.Release()
		}
		delete(r.meshes, id)
	}
}
