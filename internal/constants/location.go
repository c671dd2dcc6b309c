package constants

import "time"

const (
	// DefaultConfigFile is read when no -config flag is given.
	DefaultConfigFile = "configs/config.yaml"

	// DefaultHostName identifies the daemon to the platform.
	DefaultHostName = "locationd"

	// DefaultUpdateInterval applies when a service has no interval configured.
	DefaultUpdateInterval = 10 * time.Second

	// DefaultResponseTimeout bounds token registration and removal.
	DefaultResponseTimeout = 10 * time.Second

	// DefaultPublishTimeout bounds a single MQTT publish.
	DefaultPublishTimeout = 5 * time.Second

	// DisconnectQuiesce is the MQTT disconnect grace period in milliseconds.
	DisconnectQuiesce = 250
)

// Service names, in start order.
const (
	StreamService     = "stream"
	BackgroundService = "background"
	MockService       = "mock"
)
