package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/lumen/engine/logging"
)

// DefaultHistory is the number of FPS samples kept for the frame-rate plot.
const DefaultHistory = 120

// Profiler tracks the frame rate and memory statistics of the render loop.
// Every frame's instantaneous FPS is pushed into a fixed-size ring for plotting, and a
// summary is logged at the update interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	lastFrame      time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	history []float32
	next    int
	filled  bool

	averageFPS float32
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets how often the summary is logged.
//
// Parameters:
//   - d: the interval, ignored when not positive
//
// Returns:
//   - ProfilerOption: option function to apply
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithHistory sets the capacity of the FPS ring.
//
// Parameters:
//   - n: number of samples, ignored when not positive
//
// Returns:
//   - ProfilerOption: option function to apply
func WithHistory(n int) ProfilerOption {
	return func(p *Profiler) {
		if n > 0 {
			p.history = make([]float32, n)
		}
	}
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second and the
// ring to DefaultHistory samples.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	now := time.Now()
	p := &Profiler{
		lastTime:       now,
		lastFrame:      now,
		updateInterval: time.Second,
		history:        make([]float32, DefaultHistory),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Tick records a frame ending now. See TickAt.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	return p.TickAt(time.Now())
}

// TickAt records a frame ending at now. The instantaneous FPS of the frame goes into the
// history ring; once the update interval has elapsed the average FPS and the heap, allocation
// rate and GC figures are logged.
//
// Parameters:
//   - now: the frame end time
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) TickAt(now time.Time) bool {
	if dt := now.Sub(p.lastFrame).Seconds(); dt > 0 {
		p.push(float32(1 / dt))
	}
	p.lastFrame = now
	p.frameCount++

	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	p.averageFPS = float32(float64(p.frameCount) / elapsed.Seconds())

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, Sys is the process footprint.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	logging.LogDebug("FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		p.averageFPS, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

func (p *Profiler) push(fps float32) {
	p.history[p.next] = fps
	p.next = (p.next + 1) % len(p.history)
	if p.next == 0 {
		p.filled = true
	}
}

// History returns the recorded FPS samples, oldest first.
//
// Returns:
//   - []float32: at most the ring capacity of samples
func (p *Profiler) History() []float32 {
	if !p.filled {
		out := make([]float32, p.next)
		copy(out, p.history[:p.next])
		return out
	}
	out := make([]float32, 0, len(p.history))
	out = append(out, p.history[p.next:]...)
	return append(out, p.history[:p.next]...)
}

// AverageFPS returns the frame rate measured over the last completed update interval, 0 before the first.
func (p *Profiler) AverageFPS() float32 {
	return p.averageFPS
}
