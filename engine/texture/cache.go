package texture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
)

// FallbackKey is the cache key of the 1x1 white texture bound to absent slots.
const FallbackKey = "lumen:fallback"

// ErrUnknownKey is returned when releasing a key the cache does not hold.
var ErrUnknownKey = errors.New("texture not in cache")

type entry struct {
	tex  backend.Texture
	view backend.TextureView
	refs int
}

// cacheImpl is the implementation of the Cache interface.
type cacheImpl struct {
	mu *sync.Mutex
	be backend.RendererBackend

	entries  map[string]*entry
	fallback *entry
	sampler  backend.Sampler
}

// Cache owns GPU textures that are shared between sub-meshes. Each Acquire of a key adds a
// reference, the texture is destroyed when the last reference is released.
type Cache interface {
	// Acquire returns the view for key, uploading data on the first acquisition.
	//
	// Parameters:
	//   - key: identity of the texture, usually its source path
	//   - data: pixels to upload if key is not cached yet
	//   - format: texel format matching data.BytesPerPixel
	//
	// Returns:
	//   - backend.TextureView: the shared view
	//   - error: error if the upload failed; the cache is unchanged
	Acquire(key string, data common.TextureStagingData, format backend.TextureFormat) (backend.TextureView, error)

	// Retain adds a reference to an already cached key.
	//
	// Returns:
	//   - backend.TextureView: the shared view
	//   - bool: false if key is not cached
	Retain(key string) (backend.TextureView, bool)

	// Release drops one reference to key and destroys the texture at zero.
	Release(key string) error

	// RefCount returns the references held on key, 0 if absent.
	RefCount(key string) int

	// Len returns the number of cached textures, the fallback excluded.
	Len() int

	// Fallback returns the 1x1 white view bound to absent texture slots.
	Fallback() backend.TextureView

	// Sampler returns the shared linear/repeat sampler.
	Sampler() backend.Sampler

	// Close destroys every texture regardless of references, then the fallback and the sampler.
	Close()
}

var _ Cache = &cacheImpl{}

// NewCache creates the cache with its fallback texture and sampler.
//
// Parameters:
//   - be: the backend that allocates the textures
//
// Returns:
//   - Cache: the cache
//   - error: error if the fallback or the sampler could not be created
func NewCache(be backend.RendererBackend) (Cache, error) {
	c := &cacheImpl{
		mu:      &sync.Mutex{},
		be:      be,
		entries: make(map[string]*entry),
	}

	white := common.TextureStagingData{Pixels: []byte{255, 255, 255, 255}, Width: 1, Height: 1, BytesPerPixel: 4}
	fallback, err := c.upload(FallbackKey, white, backend.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, err
	}
	sampler, err := be.CreateSampler(backend.SamplerDescriptor{Label: "lumen:sampler"})
	if err != nil {
		fallback.view.Release()
		fallback.tex.Release()
		return nil, fmt.Errorf("texture cache: failed to create sampler: %w", err)
	}
	c.fallback = fallback
	c.sampler = sampler
	return c, nil
}

func (c *cacheImpl) Acquire(key string, data common.TextureStagingData, format backend.TextureFormat) (backend.TextureView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.refs++
		return e.view, nil
	}
	e, err := c.upload(key, data, format)
	if err != nil {
		return nil, err
	}
	e.refs = 1
	c.entries[key] = e
	return e.view, nil
}

func (c *cacheImpl) Retain(key string) (backend.TextureView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e.refs++
	return e.view, true
}

func (c *cacheImpl) Release(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(c.entries, key)
	e.view.Release()
	e.tex.Release()
	logging.LogDebug("texture %q released", key)
	return nil
}

func (c *cacheImpl) RefCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.refs
	}
	return 0
}

func (c *cacheImpl) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cacheImpl) Fallback() backend.TextureView {
	return c.fallback.view
}

func (c *cacheImpl) Sampler() backend.Sampler {
	return c.sampler
}

func (c *cacheImpl) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		e.view.Release()
		e.tex.Release()
		delete(c.entries, key)
	}
	if c.fallback != nil {
		c.fallback.view.Release()
		c.fallback.tex.Release()
		c.fallback = nil
	}
	if c.sampler != nil {
		c.sampler.Release()
		c.sampler = nil
	}
}

// upload creates, fills and views one texture. Nothing is leaked on failure.
func (c *cacheImpl) upload(key string, data common.TextureStagingData, format backend.TextureFormat) (*entry, error) {
	if data.Width == 0 || data.Height == 0 {
		return nil, fmt.Errorf("texture %q: %w", key, ErrEmptyImage)
	}
	if bpp := format.BytesPerPixel(); bpp == 0 || bpp != data.BytesPerPixel {
		return nil, fmt.Errorf("texture %q: %d bytes per pixel does not match %s", key, data.BytesPerPixel, format)
	}

	tex, err := c.be.CreateTexture(backend.TextureDescriptor{
		Label:       key,
		Width:       data.Width,
		Height:      data.Height,
		SampleCount: 1,
		Format:      format,
		Usage:       backend.TextureUsageCopyDst | backend.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", key, err)
	}
	if err := c.be.WriteTexture(tex, data.Pixels, data.BytesPerRow()); err != nil {
		tex.Release()
		return nil, fmt.Errorf("texture %q: %w", key, err)
	}
	view, err := tex.CreateView(key)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("texture %q: %w", key, err)
	}
	return &entry{tex: tex, view: view}, nil
}
