package sim

import (
	"context"
	"fmt"
	"sync"
)

// Builder assembles an independent loop for one wind seed.
type Builder func(seed int64) (*Loop, error)

// Ensemble runs the same scenario under several wind seeds concurrently.
// Each run owns its own world, controller and generator.
type Ensemble struct {
	build     Builder
	numRuns   int
	seedStart int64
}

func NewEnsemble(build Builder, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, opts RunOptions) ([]*Result, error) {
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("sim: ensemble runs need a positive duration, got %g", opts.Duration)
	}
	opts.Realtime = false

	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.seedStart + int64(idx)
			loop, err := e.build(seed)
			if err != nil {
				errs[idx] = fmt.Errorf("run %d (seed %d): %w", idx, seed, err)
				return
			}
			res, err := loop.Run(ctx, opts)
			if res != nil {
				res.Seed = seed
			}
			results[idx] = res
			if err != nil {
				errs[idx] = fmt.Errorf("run %d (seed %d): %w", idx, seed, err)
			}
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
