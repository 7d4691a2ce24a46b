package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrTaskPanicked is wrapped by the error returned when a task panics.
var ErrTaskPanicked = errors.New("batch task panicked")

// TaskFunc performs the work for the task at index i.
type TaskFunc[T any] func(ctx context.Context, i int) (T, error)

// Run executes fn for every index in [0, n) concurrently and returns the
// results ordered by index, independent of completion order. If limit is
// greater than zero at most limit tasks run at once.
//
// The first error cancels ctx for the remaining tasks and is returned as
// the batch error. Tasks still in flight are waited for, but their results
// are discarded.
func Run[T any](ctx context.Context, n, limit int, fn TaskFunc[T]) ([]T, error) {
	if n <= 0 {
		return []T{}, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	// Each task owns exactly one slot, so no lock is needed.
	results := make([]T, n)

	for i := range n {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: index %d: %v", ErrTaskPanicked, i, r)
				}
			}()

			if err := ctx.Err(); err != nil {
				return err
			}

			v, err := fn(ctx, i)
			if err != nil {
				return err
			}

			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
