package utils

import (
	"time"

	"github.com/benmeehan/reactive-location/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker         string        `yaml:"broker"`          // MQTT broker address
		ClientID       string        `yaml:"client_id"`       // MQTT client ID
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate, empty for plain TCP
		Username       string        `yaml:"username"`        // Broker username
		Password       string        `yaml:"password"`        // Broker password
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // Timeout for the initial connection
	} `yaml:"mqtt"`

	Device struct {
		ID         string `yaml:"device_id"`   // Fallback device identifier
		DeviceFile string `yaml:"device_file"` // Path to the device identity file
	} `yaml:"device"`

	Platform struct {
		Name          string        `yaml:"name"`           // Host application name
		Version       string        `yaml:"version"`        // Semver version reported during API negotiation
		Workers       int           `yaml:"workers"`        // Callback dispatch workers
		QueueSize     int           `yaml:"queue_size"`     // Callback dispatch queue size
		Permissions   []string      `yaml:"permissions"`    // Permissions granted to the host application
		SourceTimeout time.Duration `yaml:"source_timeout"` // Timeout for a single source read
	} `yaml:"platform"`

	Sources struct {
		GPS struct {
			Enabled     bool          `yaml:"enabled"`      // Enable/disable the serial GPS sensor
			Port        string        `yaml:"port"`         // UNIX port where the GPS sensor is mounted
			BaudRate    int           `yaml:"baud_rate"`    // The baud rate for the GPS sensor
			ReadTimeout time.Duration `yaml:"read_timeout"` // Serial read timeout
		} `yaml:"gps"`

		Google struct {
			Enabled    bool   `yaml:"enabled"`     // Enable/disable the Google Geolocation API source
			APIKey     string `yaml:"api_key"`     // Google maps API key
			ModemIndex int    `yaml:"modem_index"` // ModemManager index used for cell tower scans
		} `yaml:"google"`

		Static struct {
			Enabled   bool    `yaml:"enabled"`   // Enable/disable the fixed position source
			Latitude  float64 `yaml:"latitude"`  // Fixed latitude in degrees
			Longitude float64 `yaml:"longitude"` // Fixed longitude in degrees
			Accuracy  float64 `yaml:"accuracy"`  // Reported accuracy in meters
		} `yaml:"static"`
	} `yaml:"sources"`

	Settings struct {
		Priority   string `yaml:"priority"`    // Priority checked against the location settings at startup
		AlwaysShow bool   `yaml:"always_show"` // Request the settings dialog even when not needed
		Required   bool   `yaml:"required"`    // Abort startup when the settings check fails
	} `yaml:"settings"`

	Services struct {
		Stream struct {
			Enabled    bool          `yaml:"enabled"`     // Enable/disable the location stream service
			Topic      string        `yaml:"topic"`       // MQTT topic for streamed locations
			QOS        int           `yaml:"qos"`         // MQTT QoS level for location messages
			Interval   time.Duration `yaml:"interval"`    // Update interval
			Priority   string        `yaml:"priority"`    // Request priority
			RetryDelay time.Duration `yaml:"retry_delay"` // Delay before resubscribing after a stream error, 0 disables
		} `yaml:"stream"`

		Background struct {
			Enabled         bool          `yaml:"enabled"`          // Enable/disable background token delivery
			Topic           string        `yaml:"topic"`            // MQTT topic for token deliveries
			QOS             int           `yaml:"qos"`              // MQTT QoS level for token deliveries
			Interval        time.Duration `yaml:"interval"`         // Update interval
			Priority        string        `yaml:"priority"`         // Request priority
			ResponseTimeout time.Duration `yaml:"response_timeout"` // Timeout for registration and removal
		} `yaml:"background"`

		Mock struct {
			Enabled   bool   `yaml:"enabled"`    // Enable/disable the mock feed
			TrackFile string `yaml:"track_file"` // Path to the YAML or JSON track, or object name when storage is enabled

			Storage struct {
				Enabled   bool   `yaml:"enabled"`    // Fetch the track from object storage
				Endpoint  string `yaml:"endpoint"`   // S3 compatible endpoint
				AccessKey string `yaml:"access_key"` // Access key ID
				SecretKey string `yaml:"secret_key"` // Secret access key
				UseSSL    bool   `yaml:"use_ssl"`    // Use HTTPS
				Bucket    string `yaml:"bucket"`     // Bucket holding the track
			} `yaml:"storage"`
		} `yaml:"mock"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
