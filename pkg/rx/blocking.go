package rx

import (
	"context"
	"sync"
)

// First subscribes to o and waits for its first event. It returns the first
// value with ok set, or ok unset when o completed empty. The subscription is
// released before First returns. Cancelling ctx unsubscribes and returns
// ctx.Err().
func First[T any](ctx context.Context, o Observable[T]) (value T, ok bool, err error) {
	type event struct {
		value T
		ok    bool
		err   error
	}

	events := make(chan event, 1)
	var once sync.Once
	send := func(e event) {
		once.Do(func() { events <- e })
	}

	sub := o.Subscribe(ObserverFuncs[T]{
		Next:      func(v T) { send(event{value: v, ok: true}) },
		Error:     func(err error) { send(event{err: err}) },
		Completed: func() { send(event{}) },
	})
	defer sub.Unsubscribe()

	select {
	case e := <-events:
		return e.value, e.ok, e.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Collect subscribes to o and gathers values until o terminates or, when
// limit is positive, until limit values have arrived. The values received so
// far are returned together with any terminal error or ctx.Err().
func Collect[T any](ctx context.Context, o Observable[T], limit int) ([]T, error) {
	var (
		mu       sync.Mutex
		values   []T
		finalErr error
		once     sync.Once
	)
	done := make(chan struct{})
	finish := func(err error) {
		once.Do(func() {
			mu.Lock()
			finalErr = err
			mu.Unlock()
			close(done)
		})
	}

	sub := o.Subscribe(ObserverFuncs[T]{
		Next: func(v T) {
			mu.Lock()
			values = append(values, v)
			reached := limit > 0 && len(values) >= limit
			mu.Unlock()
			if reached {
				finish(nil)
			}
		},
		Error:     finish,
		Completed: func() { finish(nil) },
	})

	select {
	case <-done:
	case <-ctx.Done():
		finish(ctx.Err())
	}
	sub.Unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	out := values
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, finalErr
}
