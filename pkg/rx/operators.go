package rx

import "sync"

// Just emits value and completes.
func Just[T any](value T) Observable[T] {
	return From(value)
}

// From emits values in order and completes. Emission stops early if the
// subscriber unsubscribes.
func From[T any](values ...T) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		for _, v := range values {
			if s.IsUnsubscribed() {
				return
			}
			s.OnNext(v)
		}
		s.OnCompleted()
	})
}

// Empty completes without emitting.
func Empty[T any]() Observable[T] {
	return Create(func(s *Subscriber[T]) {
		s.OnCompleted()
	})
}

// Error fails every subscription with err.
func Error[T any](err error) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		s.OnError(err)
	})
}

// Never emits nothing and never terminates.
func Never[T any]() Observable[T] {
	return Create(func(*Subscriber[T]) {})
}

// Map applies fn to every value of src.
func Map[T, R any](src Observable[T], fn func(T) R) Observable[R] {
	return Create(func(down *Subscriber[R]) {
		up := NewSubscriber[T](ObserverFuncs[T]{
			Next:      func(v T) { down.OnNext(fn(v)) },
			Error:     down.OnError,
			Completed: down.OnCompleted,
		})
		down.Add(up.Unsubscribe)
		src.SubscribeWith(up)
	})
}

// Bind maps the first value of src to an inner stream and mirrors that inner
// stream. The result terminates when the inner stream terminates or when src
// fails; src completing before its first value completes the result.
//
// src stays subscribed for as long as the inner stream runs. On unsubscribe
// the inner stream is torn down before src, so resources acquired from the
// value emitted by src are released while it is still valid.
func Bind[T, R any](src Observable[T], fn func(T) Observable[R]) Observable[R] {
	return Create(func(down *Subscriber[R]) {
		var (
			mu      sync.Mutex
			started bool
		)
		outer := NewSubscriber[T](ObserverFuncs[T]{
			Next: func(v T) {
				mu.Lock()
				if started {
					mu.Unlock()
					return
				}
				started = true
				mu.Unlock()

				if down.IsUnsubscribed() {
					return
				}
				inner := NewSubscriber[R](down)
				down.Add(inner.Unsubscribe)
				fn(v).SubscribeWith(inner)
			},
			Error: down.OnError,
			Completed: func() {
				mu.Lock()
				empty := !started
				mu.Unlock()
				if empty {
					down.OnCompleted()
				}
			},
		})
		down.Add(outer.Unsubscribe)
		src.SubscribeWith(outer)
	})
}
