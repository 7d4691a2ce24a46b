// Package batch runs a fixed set of tasks concurrently and collects their
// results in submission order.
//
// [Run] launches one goroutine per task, optionally bounded by a
// concurrency limit, and writes each result into the slot matching the
// task's index. The first failing task cancels the context handed to the
// others and its error is returned; no partial results are surfaced.
//
//	bodies, err := batch.Run(ctx, len(urls), 4, func(ctx context.Context, i int) ([]byte, error) {
//		return fetch(ctx, urls[i])
//	})
package batch
