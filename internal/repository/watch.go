// ABOUTME: Reactive query streams backed by the store change feed.
// ABOUTME: A stream emits the current result, then a fresh result after every relevant commit.
package repository

import (
	"context"

	"github.com/harperreed/healthlink/internal/storage"
)

// Update is one emission of a reactive stream.
type Update[T any] struct {
	Value T
	Err   error
}

// watch subscribes before the first load so no commit between the load and
// the subscription is missed. The channel closes when ctx ends or the store
// closes.
func watch[T any](ctx context.Context, feed *storage.Changefeed, colls []storage.Collection, load func(context.Context) (T, error)) <-chan Update[T] {
	out := make(chan Update[T])
	changes, unsubscribe := feed.Subscribe(colls...)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			v, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Update[T]{Value: v, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case _, ok := <-changes:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
