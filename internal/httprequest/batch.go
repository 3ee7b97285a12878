package httprequest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// batchBounds splits n items into consecutive [start, end) ranges of at most size.
func batchBounds(n, size int) [][2]int {
	if size < 1 || size > n {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// settle runs fn for every index concurrently and waits for all of them.
// A failing call never cancels its siblings; results are collected by index.
func settle(ctx context.Context, indexes []int, fn func(ctx context.Context, i int) error) map[int]error {
	errs := make([]error, len(indexes))
	var g errgroup.Group
	for pos, i := range indexes {
		g.Go(func() error {
			errs[pos] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	out := map[int]error{}
	for pos, err := range errs {
		if err != nil {
			out[indexes[pos]] = err
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
