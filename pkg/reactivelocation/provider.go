// Package reactivelocation exposes the fused location platform as cold
// streams.
//
// Every stream connects its own platform client on subscription and
// disconnects it when the subscription ends, whether by unsubscribe, error
// or completion. Nothing touches the platform before Subscribe is called.
//
// Errors are delivered through the stream: *ConnectionError,
// *ConnectionSuspendedError, *StatusError, *PlatformError or the platform's
// permission error. Use KindOf or errors.Is with the Err* sentinels to tell
// them apart. Streams never retry; resubscribe to start over.
package reactivelocation

import (
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/rx"
	"github.com/rs/zerolog"
)

// Provider is a factory of location streams bound to one host context.
type Provider struct {
	host     platform.HostContext
	services platform.LocationServices
	logger   zerolog.Logger
}

// NewProvider creates a Provider for host backed by services.
func NewProvider(host platform.HostContext, services platform.LocationServices, logger zerolog.Logger) *Provider {
	return &Provider{
		host:     host,
		services: services,
		logger:   logger.With().Str("component", "reactivelocation").Str("host", host.Name()).Logger(),
	}
}

// LastKnownLocation emits the last known location and completes. When no
// location is available it completes without emitting.
//
// Requires the coarse or fine location permission.
func (p *Provider) LastKnownLocation() rx.Observable[platform.Location] {
	return withClient(p, p.lastKnownLocation)
}

// UpdatedLocation emits location updates for req until unsubscribed. The
// stream never completes on its own.
//
// Requires the coarse or fine location permission.
func (p *Provider) UpdatedLocation(req platform.LocationRequest) rx.Observable[platform.Location] {
	return withClient(p, func(c platform.Client) rx.Observable[platform.Location] {
		return p.locationUpdates(c, req)
	})
}

// MockLocation enables mock mode while subscribed and pushes every location
// emitted by source to the platform. It emits one status per mock location
// and completes when source completes. Mock locations replace real ones for
// every consumer of the platform.
//
// Requires the mock location permission in addition to a location
// permission; without it the stream fails with ErrPermissionDenied.
func (p *Provider) MockLocation(source rx.Observable[platform.Location]) rx.Observable[platform.Status] {
	return withClient(p, func(c platform.Client) rx.Observable[platform.Status] {
		return p.mockLocation(c, source)
	})
}

// RequestLocationUpdates registers token as a delivery endpoint for req. It
// emits the registration status and completes. Call RemoveLocationUpdates
// with the same token to stop delivery.
func (p *Provider) RequestLocationUpdates(req platform.LocationRequest, token platform.DeliveryToken) rx.Observable[platform.Status] {
	return withClient(p, func(c platform.Client) rx.Observable[platform.Status] {
		result, err := p.services.Fused.RequestLocationUpdatesToken(c, req, token)
		if err != nil {
			return rx.Error[platform.Status](platformError("request location updates", err))
		}
		return FromPendingResult(result)
	})
}

// RemoveLocationUpdates unregisters token. It emits the status and completes.
func (p *Provider) RemoveLocationUpdates(token platform.DeliveryToken) rx.Observable[platform.Status] {
	return withClient(p, func(c platform.Client) rx.Observable[platform.Status] {
		result, err := p.services.Fused.RemoveLocationUpdatesToken(c, token)
		if err != nil {
			return rx.Error[platform.Status](platformError("remove location updates", err))
		}
		return FromPendingResult(result)
	})
}

// CheckLocationSettings emits the settings result for req and completes. The
// result is forwarded as is; a resolvable or unsatisfiable status is not an
// error.
func (p *Provider) CheckLocationSettings(req platform.LocationSettingsRequest) rx.Observable[platform.LocationSettingsResult] {
	return withClient(p, func(c platform.Client) rx.Observable[platform.LocationSettingsResult] {
		result, err := p.services.Settings.CheckLocationSettings(c, req)
		if err != nil {
			return rx.Error[platform.LocationSettingsResult](platformError("check location settings", err))
		}
		return FromPendingResultFunc(result, AcceptAny[platform.LocationSettingsResult])
	})
}

// GoogleAPIClientObservable emits a client connected to apis and never
// completes. The client stays connected until unsubscribe; do not
// disconnect it directly.
func (p *Provider) GoogleAPIClientObservable(apis ...platform.API) rx.Observable[platform.Client] {
	set := make([]platform.API, len(apis))
	copy(set, apis)
	return newClientObservable(p.host, p.services.Clients, set, p.logger)
}

// withClient runs op against a freshly connected location services client.
// The client is released after the stream returned by op has been torn down.
func withClient[T any](p *Provider, op func(c platform.Client) rx.Observable[T]) rx.Observable[T] {
	return rx.Bind(p.GoogleAPIClientObservable(platform.LocationServicesAPI), op)
}
