package delivery

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/reactive-location/internal/mocks"
	"github.com/benmeehan/reactive-location/internal/models"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sample() platform.Location {
	return platform.Location{
		Latitude:  48.137,
		Longitude: 11.575,
		Accuracy:  12,
		Provider:  "gps:/dev/ttyUSB0",
		Time:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMQTTToken_Send(t *testing.T) {
	mockClient := new(mocks.MockMQTTClient)
	mockToken := new(mocks.MockToken)
	token := NewMQTTToken("devices/locations", 1, "device-1", time.Second, mockClient, zerolog.Nop())

	var payload []byte
	mockClient.On("Publish", "devices/locations", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(3).([]byte) }).
		Return(mockToken)
	mockToken.On("WaitTimeout", time.Second).Return(true)
	mockToken.On("Error").Return(nil)

	require.NoError(t, token.Send(sample()))

	var msg models.Location
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "device-1", msg.DeviceID)
	assert.Equal(t, token.ID(), msg.TokenID)
	assert.Equal(t, "gps:/dev/ttyUSB0", msg.Provider)
	assert.Equal(t, 48.137, msg.Latitude)
	assert.False(t, msg.Mock)

	mockClient.AssertExpectations(t)
	mockToken.AssertExpectations(t)
}

func TestMQTTToken_SendTimeout(t *testing.T) {
	mockClient := new(mocks.MockMQTTClient)
	mockToken := new(mocks.MockToken)
	token := NewMQTTToken("devices/locations", 0, "device-1", 0, mockClient, zerolog.Nop())

	mockClient.On("Publish", "devices/locations", byte(0), false, mock.Anything).Return(mockToken)
	mockToken.On("WaitTimeout", 5*time.Second).Return(false)

	err := token.Send(sample())
	assert.EqualError(t, err, "timed out publishing to devices/locations")
	mockToken.AssertNotCalled(t, "Error")
}

func TestMQTTToken_SendError(t *testing.T) {
	mockClient := new(mocks.MockMQTTClient)
	mockToken := new(mocks.MockToken)
	token := NewMQTTToken("devices/locations", 0, "device-1", time.Second, mockClient, zerolog.Nop())

	brokerErr := errors.New("not authorized")
	mockClient.On("Publish", "devices/locations", byte(0), false, mock.Anything).Return(mockToken)
	mockToken.On("WaitTimeout", time.Second).Return(true)
	mockToken.On("Error").Return(brokerErr)

	err := token.Send(sample())
	assert.ErrorIs(t, err, brokerErr)
}

func TestMQTTToken_UniqueIDs(t *testing.T) {
	a := NewMQTTToken("t", 0, "d", 0, nil, zerolog.Nop())
	b := NewMQTTToken("t", 0, "d", 0, nil, zerolog.Nop())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNewMessage(t *testing.T) {
	loc := sample()
	loc.Mock = true

	msg := NewMessage("device-1", "token-1", loc)
	assert.Equal(t, models.Location{
		DeviceID:  "device-1",
		TokenID:   "token-1",
		Timestamp: loc.Time,
		Provider:  loc.Provider,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Accuracy:  loc.Accuracy,
		Mock:      true,
	}, msg)
}
