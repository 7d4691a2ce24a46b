package client

import (
	"context"

	"github.com/adamwoolhether/apiman/client/batch"
)

// PerformAll executes every descriptor concurrently and returns the
// bodies in input order, regardless of completion order. The first
// failure cancels the calls still in flight and is returned alone;
// no partial results are reported.
func (c *Client) PerformAll(ctx context.Context, ds []Descriptor) ([][]byte, error) {
	return runBatch(ctx, c.batchLimit, ds, c.Perform)
}

func runBatch[T any](ctx context.Context, limit int, ds []Descriptor, fn func(context.Context, Descriptor) (T, error)) ([]T, error) {
	return batch.Run(ctx, len(ds), limit, func(ctx context.Context, i int) (T, error) {
		return fn(ctx, ds[i])
	})
}
