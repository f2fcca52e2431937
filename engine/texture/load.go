package texture

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/lumen/common"
)

// Decoded is one file decoded by LoadAll.
type Decoded struct {
	Path string
	Data common.TextureStagingData
	Err  error
}

// LoadAll decodes every path in parallel on a worker pool. Decoding is CPU-only, the
// uploads stay on the render goroutine. Results keep the order of paths; duplicates are decoded once.
//
// Parameters:
//   - paths: image files to decode
//   - workers: pool size, 0 uses GOMAXPROCS
//   - options: decode options applied to every file
//
// Returns:
//   - []Decoded: one entry per path in input order
//   - error: every decode failure joined, nil if all succeeded
func LoadAll(paths []string, workers int, options ...DecodeOption) ([]Decoded, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Decoded, len(paths))
	if len(paths) == 0 {
		return out, nil
	}

	first := make(map[string]int, len(paths))
	for i, p := range paths {
		out[i].Path = p
		if _, ok := first[p]; !ok {
			first[p] = i
		}
	}

	pool := worker.NewDynamicWorkerPool(min(workers, len(first)), 256, 1*time.Second)
	defer pool.Stop()

	var wg sync.WaitGroup
	for path, idx := range first {
		wg.Add(1)
		slot := &out[idx]
		p := path
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				slot.Data, slot.Err = DecodeFile(p, options...)
				return nil, slot.Err
			},
		})
	}
	wg.Wait()

	var errs []error
	for i := range out {
		src := first[out[i].Path]
		if src != i {
			out[i].Data, out[i].Err = out[src].Data, out[src].Err
			continue
		}
		if out[i].Err != nil {
			errs = append(errs, out[i].Err)
		}
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("load textures: %w", errors.Join(errs...))
	}
	return out, nil
}
