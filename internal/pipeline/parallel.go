package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ParallelConfig controls the per-image worker pool.
type ParallelConfig struct {
	// MaxWorkers bounds concurrent images; 0 means runtime.NumCPU().
	MaxWorkers int
	// Progress is optional.
	Progress ProgressCallback
}

// DefaultParallelConfig uses one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type job[T any] struct {
	index int
	item  T
}

type jobResult[R any] struct {
	index int
	value R
	err   error
}

// parallelMap applies fn to every item on a bounded worker pool. out[i]
// always belongs to items[i]. The first error by input position is
// returned; other results are still filled in.
func parallelMap[T, R any](ctx context.Context, items []T, cfg ParallelConfig, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out, nil
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(items))
	progress := cfg.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(items))
	defer progress.OnComplete()

	jobs := make(chan job[T])
	results := make(chan jobResult[R], len(items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				v, err := fn(ctx, j.item)
				results <- jobResult[R]{index: j.index, value: v, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, it := range items {
			select {
			case jobs <- job[T]{index: i, item: it}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	errs := make([]error, len(items))
	done := 0
	for r := range results {
		out[r.index] = r.value
		errs[r.index] = r.err
		done++
		if r.err != nil {
			progress.OnError(r.index, r.err)
		}
		progress.OnProgress(done, len(items))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return out, fmt.Errorf("image %d: %w", i, err)
		}
	}
	return out, nil
}

// errSizeMismatch is returned when per-image slices disagree in length.
var errSizeMismatch = errors.New("batch inputs have different lengths")
