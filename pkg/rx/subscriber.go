package rx

import "sync"

type notificationKind int

const (
	kindNext notificationKind = iota
	kindError
	kindCompleted
)

type notification[T any] struct {
	kind  notificationKind
	value T
	err   error
}

// Subscriber is the per-subscription state shared by a producer and its
// observer. It is safe to call OnNext, OnError, OnCompleted and Unsubscribe
// from any goroutine.
//
// Events are delivered one at a time and in the order they were accepted.
// Nothing is delivered after the first terminal event or after Unsubscribe.
// A terminal event unsubscribes once it has been delivered.
type Subscriber[T any] struct {
	observer Observer[T]

	mu           sync.Mutex
	queue        []notification[T]
	emitting     bool
	terminated   bool
	unsubscribed bool
	teardowns    []func()
}

// NewSubscriber wraps observer.
func NewSubscriber[T any](observer Observer[T]) *Subscriber[T] {
	return &Subscriber[T]{observer: observer}
}

// OnNext delivers a value unless the subscription has ended.
func (s *Subscriber[T]) OnNext(value T) {
	s.push(notification[T]{kind: kindNext, value: value})
}

// OnError terminates the subscription with err.
func (s *Subscriber[T]) OnError(err error) {
	s.push(notification[T]{kind: kindError, err: err})
}

// OnCompleted terminates the subscription normally.
func (s *Subscriber[T]) OnCompleted() {
	s.push(notification[T]{kind: kindCompleted})
}

// Add registers fn to run on unsubscribe. If the subscriber is already
// unsubscribed fn runs immediately.
func (s *Subscriber[T]) Add(fn func()) {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		fn()
		return
	}
	s.teardowns = append(s.teardowns, fn)
	s.mu.Unlock()
}

// Unsubscribe stops delivery and runs the registered teardowns, last added
// first. Calling it more than once is a no-op.
func (s *Subscriber[T]) Unsubscribe() {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		return
	}
	s.unsubscribed = true
	s.queue = nil
	teardowns := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
}

// IsUnsubscribed reports whether Unsubscribe has run.
func (s *Subscriber[T]) IsUnsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

// push queues n and drains the queue unless another goroutine is already
// draining it. Observer methods are never called with mu held, so observers
// may unsubscribe or trigger further events from inside a callback.
func (s *Subscriber[T]) push(n notification[T]) {
	s.mu.Lock()
	if s.terminated || s.unsubscribed {
		s.mu.Unlock()
		return
	}
	if n.kind != kindNext {
		s.terminated = true
	}
	s.queue = append(s.queue, n)
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true

	for {
		if len(s.queue) == 0 || s.unsubscribed {
			s.queue = nil
			s.emitting = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(next)

		s.mu.Lock()
	}
}

func (s *Subscriber[T]) deliver(n notification[T]) {
	switch n.kind {
	case kindNext:
		s.observer.OnNext(n.value)
	case kindError:
		s.observer.OnError(n.err)
		s.Unsubscribe()
	case kindCompleted:
		s.observer.OnCompleted()
		s.Unsubscribe()
	}
}
