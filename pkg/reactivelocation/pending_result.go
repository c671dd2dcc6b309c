package reactivelocation

import (
	"sync"

	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/rx"
)

// AcceptSuccess accepts results whose status is successful.
func AcceptSuccess[T platform.Result](result T) bool {
	return result.GetStatus().IsSuccess()
}

// AcceptAny accepts every result regardless of its status.
func AcceptAny[T platform.Result](T) bool {
	return true
}

// FromPendingResult wraps a deferred result in a stream that emits the
// result and completes, or fails with a *StatusError when the status is not
// successful.
func FromPendingResult[T platform.Result](result platform.PendingResult[T]) rx.Observable[T] {
	return FromPendingResultFunc(result, AcceptSuccess[T])
}

// FromPendingResultFunc is FromPendingResult with a caller supplied notion of
// an acceptable result.
//
// Unsubscribing before completion cancels the deferred result. A result that
// still arrives afterwards is dropped.
func FromPendingResultFunc[T platform.Result](result platform.PendingResult[T], accept func(T) bool) rx.Observable[T] {
	return rx.Create(func(s *rx.Subscriber[T]) {
		var (
			mu       sync.Mutex
			complete bool
		)
		s.Add(func() {
			mu.Lock()
			done := complete
			mu.Unlock()
			if !done {
				result.Cancel()
			}
		})

		result.SetResultCallback(func(r T) {
			mu.Lock()
			if complete {
				mu.Unlock()
				return
			}
			complete = true
			mu.Unlock()

			if !accept(r) {
				s.OnError(&StatusError{Status: r.GetStatus()})
				return
			}
			s.OnNext(r)
			s.OnCompleted()
		})
	})
}
