package translate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// indexed carries a task result back to the collector together with the
// position of the task.
type indexed[R any] struct {
	idx int
	val R
	err error
}

// runIndexed runs fn for every item in its own goroutine and returns values
// and errors in item order, whatever the completion order was. Results travel
// over a channel; nothing is shared between the tasks.
func runIndexed[T, R any](ctx context.Context, items []T, fn func(context.Context, int, T) (R, error)) ([]R, []error) {
	results := make(chan indexed[R], len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			v, err := fn(ctx, i, item)
			results <- indexed[R]{idx: i, val: v, err: err}
		}(i, item)
	}

	wg.Wait()
	close(results)

	collected := make([]indexed[R], 0, len(items))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(a, b int) bool { return collected[a].idx < collected[b].idx })

	vals := make([]R, len(collected))
	errs := make([]error, len(collected))
	for i, r := range collected {
		vals[i] = r.val
		errs[i] = r.err
	}
	return vals, errs
}

// firstError returns the first non-nil error in errs.
func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// retry runs fn until it succeeds, the retry budget is spent or ctx is done.
// Every resubmission waits for an exponentially growing delay.
func (r *run) retry(ctx context.Context, what string, fn func() error) error {
	limit := r.opts.maxRetries()
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if limit != UnlimitedRetries && attempt >= limit {
			return fmt.Errorf("%s: %w after %d attempts: %w", what, ErrRetriesExhausted, attempt+1, err)
		}

		wait := r.opts.backoff(attempt)
		r.stats.retries.Add(1)
		r.opts.logError("%s failed (attempt %d): %v; resubmitting in %v", what, attempt+1, err, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// limiter bounds the number of provider calls in flight across the engine.
type limiter chan struct{}

func newLimiter(n int) limiter {
	return make(limiter, n)
}

func (l limiter) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l limiter) release() {
	<-l
}
