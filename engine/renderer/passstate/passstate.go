// Package passstate selects between the precreated culling and depth configurations of a pass.
package passstate

import "sync"

// Key identifies one rasterizer/depth configuration.
type Key struct {
	Cull  bool
	Depth bool
}

// Keys lists every configuration, used to precreate one pipeline per key.
var Keys = []Key{
	{Cull: false, Depth: false},
	{Cull: false, Depth: true},
	{Cull: true, Depth: false},
	{Cull: true, Depth: true},
}

func (k Key) String() string {
	cull, depth := "cull-off", "depth-off"
	if k.Cull {
		cull = "cull-on"
	}
	if k.Depth {
		depth = "depth-on"
	}
	return cull + "," + depth
}

// Toggle is one recorded SetCulling or SetDepth call.
type Toggle string

const (
	CullOn   Toggle = "cull-on"
	CullOff  Toggle = "cull-off"
	DepthOn  Toggle = "depth-on"
	DepthOff Toggle = "depth-off"
)

// Recorder captures toggle calls in order.
type Recorder struct {
	mu      sync.Mutex
	toggles []Toggle
}

func (r *Recorder) record(t Toggle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.toggles = append(r.toggles, t)
}

// Toggles returns a copy of the recorded calls.
func (r *Recorder) Toggles() []Toggle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Toggle, len(r.toggles))
	copy(out, r.toggles)
	return out
}

// Reset clears the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.toggles = nil
}

// PassState is a pure selector: it never touches the GPU, the next draw reads Current.
type PassState interface {
	// SetCulling selects back-face culling (enabled) or no culling.
	SetCulling(enabled bool)

	// SetDepth selects the depth-tested configuration (enabled) or the depth-disabled one.
	SetDepth(enabled bool)

	// Current returns the selected configuration.
	Current() Key
}

type passStateImpl struct {
	mu       *sync.Mutex
	current  Key
	recorder *Recorder
}

type PassStateBuilderOption func(*passStateImpl)

// WithRecorder captures every toggle call into r.
//
// Parameters:
//   - r: the recorder to append to
//
// Returns:
//   - PassStateBuilderOption: option function to apply
func WithRecorder(r *Recorder) PassStateBuilderOption {
	return func(p *passStateImpl) {
		p.recorder = r
	}
}

// WithInitial sets the starting configuration. The default is culling and depth enabled.
//
// Parameters:
//   - k: the starting configuration
//
// Returns:
//   - PassStateBuilderOption: option function to apply
func WithInitial(k Key) PassStateBuilderOption {
	return func(p *passStateImpl) {
		p.current = k
	}
}

var _ PassState = &passStateImpl{}

// NewPassState creates a selector starting at culling and depth enabled.
func NewPassState(options ...PassStateBuilderOption) PassState {
	p := &passStateImpl{
		mu:      &sync.Mutex{},
		current: Key{Cull: true, Depth: true},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *passStateImpl) SetCulling(enabled bool) {
	p.mu.Lock()
	p.current.Cull = enabled
	p.mu.Unlock()

	if p.recorder != nil {
		if enabled {
			p.recorder.record(CullOn)
		} else {
			p.recorder.record(CullOff)
		}
	}
}

func (p *passStateImpl) SetDepth(enabled bool) {
	p.mu.Lock()
	p.current.Depth = enabled
	p.mu.Unlock()

	if p.recorder != nil {
		if enabled {
			p.recorder.record(DepthOn)
		} else {
			p.recorder.record(DepthOff)
		}
	}
}

func (p *passStateImpl) Current() Key {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}
