package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/rx"
	"github.com/rs/zerolog"
)

// TokenRegistrar registers and removes delivery tokens.
type TokenRegistrar interface {
	RequestLocationUpdates(req platform.LocationRequest, token platform.DeliveryToken) rx.Observable[platform.Status]
	RemoveLocationUpdates(token platform.DeliveryToken) rx.Observable[platform.Status]
}

// BackgroundDeliveryService registers a delivery token with the platform on
// Start and removes it on Stop. Locations flow to the token without any
// subscription being held in between.
type BackgroundDeliveryService struct {
	request         platform.LocationRequest
	responseTimeout time.Duration

	registrar TokenRegistrar
	token     platform.DeliveryToken
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewBackgroundDeliveryService creates a BackgroundDeliveryService.
func NewBackgroundDeliveryService(request platform.LocationRequest, responseTimeout time.Duration, registrar TokenRegistrar,
	token platform.DeliveryToken, logger zerolog.Logger) *BackgroundDeliveryService {
	return &BackgroundDeliveryService{
		request:         request,
		responseTimeout: responseTimeout,
		registrar:       registrar,
		token:           token,
		logger:          logger.With().Str("token", token.ID()).Logger(),
	}
}

// Start registers the token.
func (b *BackgroundDeliveryService) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		b.logger.Warn().Msg("BackgroundDeliveryService is already running")
		return errors.New("background delivery service is already running")
	}

	status, err := b.await(b.registrar.RequestLocationUpdates(b.request, b.token))
	if err != nil {
		return fmt.Errorf("failed to register delivery token: %w", err)
	}
	b.running = true

	b.logger.Info().Int("status", status.Code).Msg("BackgroundDeliveryService started successfully")
	return nil
}

// Stop removes the token.
func (b *BackgroundDeliveryService) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		b.logger.Warn().Msg("BackgroundDeliveryService is not running")
		return errors.New("background delivery service is not running")
	}
	b.running = false

	if _, err := b.await(b.registrar.RemoveLocationUpdates(b.token)); err != nil {
		return fmt.Errorf("failed to remove delivery token: %w", err)
	}

	b.logger.Info().Msg("BackgroundDeliveryService stopped successfully")
	return nil
}

func (b *BackgroundDeliveryService) await(o rx.Observable[platform.Status]) (platform.Status, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.responseTimeout)
	defer cancel()

	status, ok, err := rx.First(ctx, o)
	if err != nil {
		return platform.Status{}, err
	}
	if !ok {
		return platform.Status{}, errors.New("platform returned no status")
	}
	return status, nil
}
