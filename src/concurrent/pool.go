// Package concurrent holds small bounded fan-out helpers.
package concurrent

import (
	"context"
	"errors"
	"sync"
)

const defaultLimit = 10

// ForEach calls fn for every item with at most limit calls in flight. Every
// item is attempted; the failures are joined in item order. Items that could
// not start before ctx ended report ctx.Err().
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	errs := make([]error, len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, val T) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
			case sem <- struct{}{}:
				defer func() { <-sem }()
				errs[idx] = fn(ctx, val)
			}
		}(i, item)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Map is ForEach with a result per item, returned in input order.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	err := ForEach(ctx, idx, limit, func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		results[i] = r
		return err
	})
	return results, err
}
