package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const defaultWorkerCount = 4

type Options struct {
	WorkerCount int
}

// Run analyzes all rows concurrently and returns the results in input order. The
// callback, if any, is invoked once per finished row, never concurrently.
// Only a cancelled context stops the batch early, in which case the rows that
// were not analyzed keep their default result.
func (a *Analyzer) Run(ctx context.Context, rows []Row, opts Options, fn func(Result)) ([]Result, error) {
	workers := opts.WorkerCount
	if workers <= 0 {
		workers = defaultWorkerCount
	}

	results := make([]Result, len(rows))
	for i, row := range rows {
		results[i] = defaultResult(row)
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var m sync.Mutex

	for i := range rows {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			res := a.Analyze(ctx, rows[i])
			results[i] = res

			if fn != nil {
				m.Lock()
				fn(res)
				m.Unlock()
			}
		}(i)
	}
	wg.Wait()

	return results, ctx.Err()
}
