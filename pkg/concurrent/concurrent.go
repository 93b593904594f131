package concurrent

import (
	"context"

	"github.com/zeusync/enemyai/pkg/sequence"
	"golang.org/x/sync/errgroup"
)

// Concurrent runs action for every element in its own goroutine and returns
// the first error once all of them finished.
func Concurrent[T any](i *sequence.Iterator[T], action func(T) error) error {
	var group errgroup.Group
	for value := range i.Seq() {
		group.Go(func() error {
			return action(value)
		})
	}
	return group.Wait()
}

// ForEachLimit runs action for every element with at most limit goroutines in
// flight. The context passed to action is cancelled on the first error.
// A limit below 1 means unbounded.
func ForEachLimit[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	group, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	next, stop := i.Pull()
	defer stop()
	for {
		value, ok := next()
		if !ok {
			break
		}
		if gctx.Err() != nil {
			break
		}
		group.Go(func() error {
			return action(gctx, value)
		})
	}
	return group.Wait()
}

// MapLimit maps in to out preserving order, with at most limit goroutines in
// flight. The first error cancels the rest and is returned.
func MapLimit[T any, R any](ctx context.Context, in []T, limit int, mapFn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	group, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for idx, value := range in {
		group.Go(func() error {
			r, err := mapFn(gctx, value)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
