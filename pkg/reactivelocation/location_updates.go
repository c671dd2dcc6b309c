package reactivelocation

import (
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/rx"
)

func (p *Provider) lastKnownLocation(c platform.Client) rx.Observable[platform.Location] {
	return rx.Create(func(s *rx.Subscriber[platform.Location]) {
		location, err := p.services.Fused.GetLastLocation(c)
		if err != nil {
			s.OnError(platformError("get last location", err))
			return
		}
		if location != nil {
			s.OnNext(*location)
		} else {
			p.logger.Debug().Msg("No last known location available")
		}
		s.OnCompleted()
	})
}

// updatesListener forwards platform callbacks into a subscription. The
// subscriber drops callbacks that arrive after unsubscribe.
type updatesListener struct {
	subscriber *rx.Subscriber[platform.Location]
}

func (l *updatesListener) OnLocationChanged(location platform.Location) {
	l.subscriber.OnNext(location)
}

func (p *Provider) locationUpdates(c platform.Client, req platform.LocationRequest) rx.Observable[platform.Location] {
	return rx.Create(func(s *rx.Subscriber[platform.Location]) {
		listener := &updatesListener{subscriber: s}
		if err := p.services.Fused.RequestLocationUpdates(c, req, listener); err != nil {
			s.OnError(platformError("request location updates", err))
			return
		}
		p.logger.Debug().
			Str("priority", req.Priority.String()).
			Dur("interval", req.Interval).
			Msg("Location updates requested")

		s.Add(func() {
			if err := p.services.Fused.RemoveLocationUpdates(c, listener); err != nil {
				p.logger.Warn().Err(err).Msg("Failed to remove location updates")
				return
			}
			p.logger.Debug().Msg("Location updates removed")
		})
	})
}
