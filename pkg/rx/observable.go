// Package rx provides a minimal cold observable used to expose callback based
// platform APIs as subscription scoped streams.
//
// An Observable does nothing until Subscribe is called. Every subscription
// runs its own lifecycle and ends with at most one terminal event (error or
// completion). Unsubscribing runs the teardown functions registered on the
// Subscriber in reverse order of registration.
package rx

// Observer receives the events of a single subscription.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	Unsubscribe()
	IsUnsubscribed() bool
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil functions are ignored.
type ObserverFuncs[T any] struct {
	Next      func(value T)
	Error     func(err error)
	Completed func()
}

func (o ObserverFuncs[T]) OnNext(value T) {
	if o.Next != nil {
		o.Next(value)
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

func (o ObserverFuncs[T]) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}

// Observable is a cold stream. The zero value completes immediately.
type Observable[T any] struct {
	onSubscribe func(s *Subscriber[T])
}

// Create returns an Observable that runs fn for every subscription.
// fn must register its cleanup with Subscriber.Add.
func Create[T any](fn func(s *Subscriber[T])) Observable[T] {
	return Observable[T]{onSubscribe: fn}
}

// Subscribe starts a new lifecycle delivering events to observer.
func (o Observable[T]) Subscribe(observer Observer[T]) Subscription {
	s := NewSubscriber(observer)
	o.SubscribeWith(s)
	return s
}

// SubscribeFunc is a shorthand for Subscribe(ObserverFuncs{...}).
func (o Observable[T]) SubscribeFunc(next func(T), onError func(error), completed func()) Subscription {
	return o.Subscribe(ObserverFuncs[T]{Next: next, Error: onError, Completed: completed})
}

// SubscribeWith runs the lifecycle against an already constructed subscriber.
// It is used by operators that need to register teardown before the source
// starts emitting.
func (o Observable[T]) SubscribeWith(s *Subscriber[T]) {
	if s.IsUnsubscribed() {
		return
	}
	if o.onSubscribe == nil {
		s.OnCompleted()
		return
	}
	o.onSubscribe(s)
}
