package mocks

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// MockMQTTClient mocks pkg/mqtt.MQTTClient. Connect and Publish return the
// configured token, usually a *MockToken.
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() mqtt.Token {
	return m.Called().Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return m.Called(topic, qos, retained, payload).Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// MockToken mocks an mqtt.Token. Done returns an already closed channel
// unless an expectation for it is set.
type MockToken struct {
	mock.Mock
}

func (m *MockToken) Wait() bool {
	return m.Called().Bool(0)
}

func (m *MockToken) WaitTimeout(timeout time.Duration) bool {
	return m.Called(timeout).Bool(0)
}

func (m *MockToken) Done() <-chan struct{} {
	for _, call := range m.ExpectedCalls {
		if call.Method == "Done" {
			return m.Called().Get(0).(<-chan struct{})
		}
	}
	done := make(chan struct{})
	close(done)
	return done
}

func (m *MockToken) Error() error {
	return m.Called().Error(0)
}
