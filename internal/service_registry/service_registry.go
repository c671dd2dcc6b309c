package service_registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/reactive-location/internal/constants"
	"github.com/benmeehan/reactive-location/internal/registry"
	"github.com/benmeehan/reactive-location/internal/services"
	"github.com/benmeehan/reactive-location/internal/utils"
	"github.com/benmeehan/reactive-location/pkg/delivery"
	"github.com/benmeehan/reactive-location/pkg/file"
	"github.com/benmeehan/reactive-location/pkg/identity"
	"github.com/benmeehan/reactive-location/pkg/location"
	"github.com/benmeehan/reactive-location/pkg/mqtt"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/reactivelocation"
	"github.com/benmeehan/reactive-location/pkg/s3"
	"github.com/rs/zerolog"
)

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration

	provider      *reactivelocation.Provider
	deviceInfo    identity.DeviceInfoInterface
	mqttClient    mqtt.MQTTClient
	fileClient    file.FileOperations
	objectStorage s3.ObjectStorageClient
	Logger        zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(provider *reactivelocation.Provider, deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient,
	fileClient file.FileOperations, objectStorage s3.ObjectStorageClient, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:      make(map[string]registry.Service),
		provider:      provider,
		deviceInfo:    deviceInfo,
		mqttClient:    mqttClient,
		fileClient:    fileClient,
		objectStorage: objectStorage,
		Logger:        logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    constants.StreamService,
			enabled: config.Services.Stream.Enabled,
			constructor: func() (registry.Service, error) {
				request, err := NewLocationRequest(config.Services.Stream.Priority, config.Services.Stream.Interval)
				if err != nil {
					return nil, err
				}
				sink := delivery.NewMQTTToken(
					config.Services.Stream.Topic,
					config.Services.Stream.QOS,
					sr.deviceInfo.GetDeviceID(),
					constants.DefaultPublishTimeout,
					sr.mqttClient,
					sr.Logger,
				)
				return services.NewLocationStreamService(
					request,
					config.Services.Stream.RetryDelay,
					sr.provider,
					sink,
					sr.Logger.With().Str("service", constants.StreamService).Logger(),
				), nil
			},
		},
		{
			name:    constants.BackgroundService,
			enabled: config.Services.Background.Enabled,
			constructor: func() (registry.Service, error) {
				request, err := NewLocationRequest(config.Services.Background.Priority, config.Services.Background.Interval)
				if err != nil {
					return nil, err
				}
				token := delivery.NewMQTTToken(
					config.Services.Background.Topic,
					config.Services.Background.QOS,
					sr.deviceInfo.GetDeviceID(),
					constants.DefaultPublishTimeout,
					sr.mqttClient,
					sr.Logger,
				)
				timeout := config.Services.Background.ResponseTimeout
				if timeout <= 0 {
					timeout = constants.DefaultResponseTimeout
				}
				return services.NewBackgroundDeliveryService(
					request,
					timeout,
					sr.provider,
					token,
					sr.Logger.With().Str("service", constants.BackgroundService).Logger(),
				), nil
			},
		},
		{
			name:    constants.MockService,
			enabled: config.Services.Mock.Enabled,
			constructor: func() (registry.Service, error) {
				track, err := sr.loadTrack(config)
				if err != nil {
					return nil, err
				}
				source, err := location.NewTrackProvider(track)
				if err != nil {
					return nil, fmt.Errorf("invalid track %s: %w", config.Services.Mock.TrackFile, err)
				}
				interval := source.Interval()
				if interval <= 0 {
					interval = constants.DefaultUpdateInterval
				}
				return services.NewMockFeedService(
					interval,
					sr.provider,
					source,
					sr.Logger.With().Str("service", constants.MockService).Logger(),
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

// loadTrack reads the mock track from disk or, when configured, from object
// storage.
func (sr *ServiceRegistry) loadTrack(config *utils.Config) (location.Track, error) {
	mock := config.Services.Mock
	if !mock.Storage.Enabled {
		return location.LoadTrack(mock.TrackFile, sr.fileClient)
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultResponseTimeout)
	defer cancel()
	if err := sr.objectStorage.Connect(ctx, mock.Storage.Endpoint, mock.Storage.AccessKey, mock.Storage.SecretKey, mock.Storage.UseSSL); err != nil {
		return location.Track{}, err
	}
	data, err := sr.objectStorage.GetObject(ctx, mock.Storage.Bucket, mock.TrackFile)
	if err != nil {
		return location.Track{}, err
	}
	sr.Logger.Info().Str("bucket", mock.Storage.Bucket).Str("object", mock.TrackFile).Msg("Mock track fetched from object storage")
	return location.ParseTrack(data)
}

// NewLocationRequest builds a request from configured values. An empty
// priority means balanced power and a zero interval the default interval.
func NewLocationRequest(priority string, interval time.Duration) (platform.LocationRequest, error) {
	p, err := platform.ParsePriority(priority)
	if err != nil {
		return platform.LocationRequest{}, err
	}
	if interval <= 0 {
		interval = constants.DefaultUpdateInterval
	}
	return platform.LocationRequest{
		Priority:        p,
		Interval:        interval,
		FastestInterval: interval / 2,
	}, nil
}
