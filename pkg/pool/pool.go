package pool

import (
	"context"
	"sync"
)

// WorkerFunc processes one item and returns its result.
type WorkerFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Result is the outcome for the item at the same index of the input slice.
type Result[R any] struct {
	Value R
	Err   error
	// Done is false for items that were never started because ctx ended first.
	Done bool
}

// Run processes items with at most numWorkers goroutines. Results are returned in
// input order. Once ctx is cancelled no new items are handed out and the
// remaining results carry ctx.Err().
func Run[T, R any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T, R]) []Result[R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	results := make([]Result[R], len(items))

	var wg sync.WaitGroup
	taskChan := make(chan int, numWorkers)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskChan {
				if ctx.Err() != nil {
					results[idx].Err = ctx.Err()
					continue
				}
				v, err := workerFunc(ctx, items[idx])
				results[idx] = Result[R]{Value: v, Err: err, Done: true}
			}
		}()
	}

	next := 0
OUT:
	for ; next < len(items); next++ {
		select {
		case taskChan <- next:
		case <-ctx.Done():
			// Stop feeding tasks if the context is cancelled
			break OUT
		}
	}
	close(taskChan)
	wg.Wait()

	for i := next; i < len(items); i++ {
		results[i].Err = ctx.Err()
	}
	return results
}

// Errors returns the non-nil errors of results in input order.
func Errors[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
