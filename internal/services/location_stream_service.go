package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/reactivelocation"
	"github.com/benmeehan/reactive-location/pkg/rx"
	"github.com/rs/zerolog"
)

// LocationStreamer produces continuous location updates.
type LocationStreamer interface {
	UpdatedLocation(req platform.LocationRequest) rx.Observable[platform.Location]
}

// LocationStreamService holds an UpdatedLocation subscription for as long as
// it runs and forwards every sample to a delivery token.
type LocationStreamService struct {
	// Configuration fields
	request    platform.LocationRequest
	retryDelay time.Duration

	// Dependencies
	streamer LocationStreamer
	sink     platform.DeliveryToken
	logger   zerolog.Logger

	// Internal state management
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sub     rx.Subscription
	running bool
}

// NewLocationStreamService creates a LocationStreamService. A positive
// retryDelay resubscribes after the stream fails; zero leaves it stopped.
func NewLocationStreamService(request platform.LocationRequest, retryDelay time.Duration, streamer LocationStreamer,
	sink platform.DeliveryToken, logger zerolog.Logger) *LocationStreamService {
	return &LocationStreamService{
		request:    request,
		retryDelay: retryDelay,
		streamer:   streamer,
		sink:       sink,
		logger:     logger,
	}
}

// Start subscribes to location updates.
func (l *LocationStreamService) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		l.logger.Warn().Msg("LocationStreamService is already running")
		return errors.New("location stream service is already running")
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true
	l.mu.Unlock()

	l.subscribe()
	l.logger.Info().
		Str("priority", l.request.Priority.String()).
		Dur("interval", l.request.Interval).
		Msg("LocationStreamService started successfully")
	return nil
}

// Stop unsubscribes, which unregisters the listener and disconnects the
// platform client.
func (l *LocationStreamService) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		l.logger.Warn().Msg("LocationStreamService is not running")
		return errors.New("location stream service is not running")
	}
	l.running = false
	l.cancel()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	l.wg.Wait()

	l.logger.Info().Msg("LocationStreamService stopped successfully")
	return nil
}

func (l *LocationStreamService) subscribe() {
	sub := l.streamer.UpdatedLocation(l.request).Subscribe(rx.ObserverFuncs[platform.Location]{
		Next:  l.forward,
		Error: l.handleError,
		Completed: func() {
			l.logger.Info().Msg("Location stream completed")
		},
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		sub.Unsubscribe()
		return
	}
	l.sub = sub
}

func (l *LocationStreamService) forward(loc platform.Location) {
	if err := l.sink.Send(loc); err != nil {
		l.logger.Error().Err(err).Msg("Failed to deliver location")
		return
	}
	l.logger.Debug().
		Str("provider", loc.Provider).
		Float64("latitude", loc.Latitude).
		Float64("longitude", loc.Longitude).
		Msg("Location delivered")
}

func (l *LocationStreamService) handleError(err error) {
	l.logger.Error().
		Err(err).
		Str("kind", reactivelocation.KindOf(err).String()).
		Msg("Location stream failed")

	if l.retryDelay <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	ctx := l.ctx
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		select {
		case <-time.After(l.retryDelay):
			l.logger.Info().Dur("retry_delay", l.retryDelay).Msg("Resubscribing to location stream")
			l.subscribe()
		case <-ctx.Done():
		}
	}()
}
