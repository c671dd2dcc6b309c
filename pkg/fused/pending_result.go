package fused

import (
	"sync"

	"github.com/benmeehan/reactive-location/pkg/platform"
)

var interruptedStatus = platform.Status{Code: platform.StatusInterrupted, Message: "location service is closed"}

// PendingResult is the platform's deferred result. Completion and the
// callback run on the service's dispatch pool. Once the pool is closed the
// result completes in place with the interrupted result, so a registered
// callback always fires.
type PendingResult[T platform.Result] struct {
	dispatch    func(func()) bool
	interrupted T

	mu        sync.Mutex
	completed bool
	canceled  bool
	result    T
	callback  func(T)
}

func newPendingResult[T platform.Result](dispatch func(func()) bool, interrupted T) *PendingResult[T] {
	return &PendingResult[T]{dispatch: dispatch, interrupted: interrupted}
}

func newStatusResult(dispatch func(func()) bool) *PendingResult[platform.Status] {
	return newPendingResult(dispatch, interruptedStatus)
}

// SetResultCallback registers callback. Only the first callback is kept.
func (p *PendingResult[T]) SetResultCallback(callback func(T)) {
	p.mu.Lock()
	if p.canceled || p.callback != nil {
		p.mu.Unlock()
		return
	}
	p.callback = callback
	if !p.completed {
		p.mu.Unlock()
		return
	}
	result := p.result
	p.mu.Unlock()

	p.deliver(callback, result)
}

// Cancel suppresses the callback of a result that has not completed yet.
func (p *PendingResult[T]) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.completed {
		p.canceled = true
		p.callback = nil
	}
}

func (p *PendingResult[T]) IsCanceled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canceled
}

// complete stores result and schedules the callback. It returns false when
// the result was already completed or canceled.
func (p *PendingResult[T]) complete(result T) bool {
	p.mu.Lock()
	if p.completed || p.canceled {
		p.mu.Unlock()
		return false
	}
	p.completed = true
	p.result = result
	callback := p.callback
	p.mu.Unlock()

	if callback != nil {
		p.deliver(callback, result)
	}
	return true
}

// deliver runs callback on the pool, or in place when the pool is closed.
func (p *PendingResult[T]) deliver(callback func(T), result T) {
	if !p.dispatch(func() { callback(result) }) {
		callback(result)
	}
}

// completeAsync completes the result from the dispatch pool. When the pool
// is closed the result completes right away with the interrupted result.
func (p *PendingResult[T]) completeAsync(result T) {
	if !p.dispatch(func() { p.complete(result) }) {
		p.complete(p.interrupted)
	}
}
