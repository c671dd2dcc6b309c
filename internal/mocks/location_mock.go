package mocks

import (
	"context"
	"errors"

	"github.com/benmeehan/reactive-location/pkg/location"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockLocationProvider is a mock implementation of location.Provider
type MockLocationProvider struct {
	mock.Mock
}

func (m *MockLocationProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLocationProvider) Kind() location.Kind {
	args := m.Called()
	return args.Get(0).(location.Kind)
}

func (m *MockLocationProvider) GetLocation(ctx context.Context) (location.Location, error) {
	args := m.Called(ctx)
	return args.Get(0).(location.Location), args.Error(1)
}

func (m *MockLocationProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDeliveryToken is a mock implementation of platform.DeliveryToken
type MockDeliveryToken struct {
	mock.Mock
}

func (m *MockDeliveryToken) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDeliveryToken) Send(loc platform.Location) error {
	args := m.Called(loc)
	return args.Error(0)
}

// ErrTokenFull is returned when a ChanDeliveryToken's buffer is full.
var ErrTokenFull = errors.New("delivery channel is full")

// ChanDeliveryToken delivers locations into a buffered channel.
type ChanDeliveryToken struct {
	id string
	ch chan platform.Location
}

func NewChanDeliveryToken(buffer int) *ChanDeliveryToken {
	return &ChanDeliveryToken{id: uuid.NewString(), ch: make(chan platform.Location, buffer)}
}

func (t *ChanDeliveryToken) ID() string { return t.id }

// Send never blocks; it fails with ErrTokenFull instead.
func (t *ChanDeliveryToken) Send(loc platform.Location) error {
	select {
	case t.ch <- loc:
		return nil
	default:
		return ErrTokenFull
	}
}

func (t *ChanDeliveryToken) C() <-chan platform.Location { return t.ch }
