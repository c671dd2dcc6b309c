package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/reactive-location/internal/constants"
	"github.com/benmeehan/reactive-location/internal/service_registry"
	"github.com/benmeehan/reactive-location/internal/utils"
	"github.com/benmeehan/reactive-location/pkg/file"
	"github.com/benmeehan/reactive-location/pkg/fused"
	"github.com/benmeehan/reactive-location/pkg/identity"
	"github.com/benmeehan/reactive-location/pkg/location"
	"github.com/benmeehan/reactive-location/pkg/mqtt"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/reactivelocation"
	"github.com/benmeehan/reactive-location/pkg/rx"
	"github.com/benmeehan/reactive-location/pkg/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", constants.DefaultConfigFile, "path to the configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging with JSON output
	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	deviceInfo := identity.NewDeviceInfo(config.Device.DeviceFile, config.Device.ID, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load device information")
	}
	log = log.With().Str("device_id", deviceInfo.GetDeviceID()).Logger()

	sources, err := buildSources(config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize location sources")
	}

	// Start the in-process fused location platform
	platformService, err := fused.NewService(fused.Config{
		Version:       config.Platform.Version,
		Workers:       config.Platform.Workers,
		QueueSize:     config.Platform.QueueSize,
		Sources:       sources,
		SourceTimeout: config.Platform.SourceTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start location platform")
	}

	hostName := config.Platform.Name
	if hostName == "" {
		hostName = constants.DefaultHostName
	}
	permissions := make([]platform.Permission, 0, len(config.Platform.Permissions))
	for _, p := range config.Platform.Permissions {
		permissions = append(permissions, platform.Permission(p))
	}
	host := fused.NewHostContext(hostName, permissions...)
	provider := reactivelocation.NewProvider(host, platformService.LocationServices(), log)

	if err := checkSettings(config, provider, log); err != nil && config.Settings.Required {
		log.Fatal().Err(err).Msg("Location settings are not satisfied")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient, log)
	err = mqttClient.Initialize(mqtt.Options{
		Broker:         config.MQTT.Broker,
		ClientID:       config.MQTT.ClientID,
		Username:       config.MQTT.Username,
		Password:       config.MQTT.Password,
		CACertificate:  config.MQTT.CACertificate,
		ConnectTimeout: config.MQTT.ConnectTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(provider, deviceInfo, mqttClient, fileClient, s3.NewObjectStorage(), log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Failed to stop services cleanly")
	}
	if err := platformService.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to stop location platform cleanly")
	}
	mqttClient.Disconnect(constants.DisconnectQuiesce)
}

// buildSources creates the enabled location sources in fusion order.
func buildSources(config *utils.Config, log zerolog.Logger) ([]location.Provider, error) {
	var sources []location.Provider

	if gps := config.Sources.GPS; gps.Enabled {
		sources = append(sources, location.NewDeviceSensorProvider(gps.Port, gps.BaudRate, gps.ReadTimeout))
		log.Info().Str("port", gps.Port).Int("baud_rate", gps.BaudRate).Msg("GPS source enabled")
	}
	if google := config.Sources.Google; google.Enabled {
		provider, err := location.NewGoogleGeolocationProvider(google.APIKey, google.ModemIndex, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, provider)
		log.Info().Msg("Google Geolocation source enabled")
	}
	if static := config.Sources.Static; static.Enabled {
		sources = append(sources, location.NewStaticProvider("static", static.Latitude, static.Longitude, static.Accuracy))
		log.Info().Float64("latitude", static.Latitude).Float64("longitude", static.Longitude).Msg("Static source enabled")
	}
	return sources, nil
}

// checkSettings runs a one-off settings check for the configured priority
// and logs the outcome.
func checkSettings(config *utils.Config, provider *reactivelocation.Provider, log zerolog.Logger) error {
	priority, err := platform.ParsePriority(config.Settings.Priority)
	if err != nil {
		return err
	}
	req := platform.LocationSettingsRequest{
		Requests:   []platform.LocationRequest{{Priority: priority}},
		AlwaysShow: config.Settings.AlwaysShow,
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultResponseTimeout)
	defer cancel()

	result, _, err := rx.First(ctx, provider.CheckLocationSettings(req))
	if err != nil {
		log.Error().Err(err).Str("kind", reactivelocation.KindOf(err).String()).Msg("Location settings check failed")
		return err
	}

	log.Info().
		Int("status", result.Status.Code).
		Bool("gps_usable", result.States.GPSUsable).
		Bool("network_usable", result.States.NetworkLocationUsable).
		Msg("Location settings checked")
	if !result.Status.IsSuccess() {
		return &reactivelocation.StatusError{Status: result.Status}
	}
	return nil
}
