package reactivelocation

import (
	"sync"

	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/rx"
)

// mockLocation enables mock mode on c and then feeds source into it. Mock
// mode is switched off again on unsubscribe, after the feed has stopped and
// before the client is disconnected.
func (p *Provider) mockLocation(c platform.Client, source rx.Observable[platform.Location]) rx.Observable[platform.Status] {
	return rx.Create(func(s *rx.Subscriber[platform.Status]) {
		enabled, err := p.services.Fused.SetMockMode(c, true)
		if err != nil {
			s.OnError(platformError("enable mock mode", err))
			return
		}

		s.Add(func() {
			if !c.IsConnected() {
				return
			}
			if _, err := p.services.Fused.SetMockMode(c, false); err != nil {
				p.logger.Warn().Err(err).Msg("Failed to disable mock mode")
				return
			}
			p.logger.Debug().Msg("Mock mode disabled")
		})

		feed := rx.Bind(FromPendingResult(enabled), func(platform.Status) rx.Observable[platform.Status] {
			p.logger.Debug().Msg("Mock mode enabled")
			return p.mockFeed(c, source)
		})
		inner := rx.NewSubscriber[platform.Status](s)
		s.Add(inner.Unsubscribe)
		feed.SubscribeWith(inner)
	})
}

// mockFeed pushes every location of source to the platform and emits the
// resulting statuses. It completes once source has completed and every
// pending status has arrived.
func (p *Provider) mockFeed(c platform.Client, source rx.Observable[platform.Location]) rx.Observable[platform.Status] {
	return rx.Create(func(s *rx.Subscriber[platform.Status]) {
		f := &mockFeed{subscriber: s, pending: make(map[int]rx.Subscription)}
		s.Add(f.cancelPending)

		upstream := rx.NewSubscriber[platform.Location](rx.ObserverFuncs[platform.Location]{
			Next: func(location platform.Location) {
				result, err := p.services.Fused.SetMockLocation(c, location)
				if err != nil {
					s.OnError(platformError("set mock location", err))
					return
				}
				f.track(result)
			},
			Error:     s.OnError,
			Completed: f.sourceCompleted,
		})
		s.Add(upstream.Unsubscribe)
		source.SubscribeWith(upstream)
	})
}

type mockFeed struct {
	subscriber *rx.Subscriber[platform.Status]

	mu         sync.Mutex
	nextID     int
	pending    map[int]rx.Subscription
	sourceDone bool
	closed     bool
}

// track forwards the status of result. Results arriving after the feed was
// torn down are canceled on the spot.
func (f *mockFeed) track(result platform.PendingResult[platform.Status]) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		result.Cancel()
		return
	}
	id := f.nextID
	f.nextID++
	sub := rx.NewSubscriber[platform.Status](rx.ObserverFuncs[platform.Status]{
		Next:      f.subscriber.OnNext,
		Error:     f.subscriber.OnError,
		Completed: func() { f.settle(id) },
	})
	f.pending[id] = sub
	f.mu.Unlock()

	FromPendingResult(result).SubscribeWith(sub)
}

func (f *mockFeed) settle(id int) {
	f.mu.Lock()
	delete(f.pending, id)
	finished := f.sourceDone && len(f.pending) == 0
	f.mu.Unlock()
	if finished {
		f.subscriber.OnCompleted()
	}
}

func (f *mockFeed) sourceCompleted() {
	f.mu.Lock()
	f.sourceDone = true
	finished := len(f.pending) == 0
	f.mu.Unlock()
	if finished {
		f.subscriber.OnCompleted()
	}
}

func (f *mockFeed) cancelPending() {
	f.mu.Lock()
	f.closed = true
	pending := f.pending
	f.pending = make(map[int]rx.Subscription)
	f.mu.Unlock()
	for _, sub := range pending {
		sub.Unsubscribe()
	}
}
