// Package delivery provides the MQTT platform.DeliveryToken used for
// background delivery to a broker.
package delivery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benmeehan/reactive-location/internal/models"
	"github.com/benmeehan/reactive-location/pkg/mqtt"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MQTTToken publishes every delivered location as a JSON message.
type MQTTToken struct {
	id         string
	topic      string
	qos        int
	deviceID   string
	timeout    time.Duration
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger
}

// NewMQTTToken creates a token publishing to topic. The token ID is random.
func NewMQTTToken(topic string, qos int, deviceID string, timeout time.Duration, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *MQTTToken {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	id := uuid.New().String()
	return &MQTTToken{
		id:         id,
		topic:      topic,
		qos:        qos,
		deviceID:   deviceID,
		timeout:    timeout,
		mqttClient: mqttClient,
		logger:     logger.With().Str("token", id).Str("topic", topic).Logger(),
	}
}

func (t *MQTTToken) ID() string { return t.id }

// Send publishes loc and waits for the broker acknowledgement.
func (t *MQTTToken) Send(loc platform.Location) error {
	payload, err := json.Marshal(NewMessage(t.deviceID, t.id, loc))
	if err != nil {
		return fmt.Errorf("failed to serialize location message: %w", err)
	}

	token := t.mqttClient.Publish(t.topic, byte(t.qos), false, payload)
	if !token.WaitTimeout(t.timeout) {
		return fmt.Errorf("timed out publishing to %s", t.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", t.topic, err)
	}

	t.logger.Debug().
		Float64("latitude", loc.Latitude).
		Float64("longitude", loc.Longitude).
		Msg("Location published")
	return nil
}

// NewMessage converts a sample into its wire form.
func NewMessage(deviceID, tokenID string, loc platform.Location) models.Location {
	return models.Location{
		DeviceID:  deviceID,
		TokenID:   tokenID,
		Timestamp: loc.Time,
		Provider:  loc.Provider,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Altitude:  loc.Altitude,
		Accuracy:  loc.Accuracy,
		Speed:     loc.Speed,
		Bearing:   loc.Bearing,
		Mock:      loc.Mock,
	}
}
