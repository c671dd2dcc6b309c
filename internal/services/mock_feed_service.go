package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/reactive-location/pkg/location"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/reactivelocation"
	"github.com/benmeehan/reactive-location/pkg/rx"
	"github.com/rs/zerolog"
)

// MockLocator pushes mock locations to the platform.
type MockLocator interface {
	MockLocation(source rx.Observable[platform.Location]) rx.Observable[platform.Status]
}

// MockFeedService replays a location source as mock locations while it
// runs. Real sources are hidden from every consumer during that time.
type MockFeedService struct {
	interval time.Duration

	locator MockLocator
	source  location.Provider
	logger  zerolog.Logger

	mu      sync.Mutex
	sub     rx.Subscription
	running bool
}

// NewMockFeedService creates a MockFeedService reading source every interval.
func NewMockFeedService(interval time.Duration, locator MockLocator, source location.Provider, logger zerolog.Logger) *MockFeedService {
	return &MockFeedService{
		interval: interval,
		locator:  locator,
		source:   source,
		logger:   logger.With().Str("source", source.Name()).Logger(),
	}
}

// Start enables mock mode and begins the replay.
func (m *MockFeedService) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.logger.Warn().Msg("MockFeedService is already running")
		return errors.New("mock feed service is already running")
	}
	m.running = true

	name := m.source.Name()
	feed := rx.Map(PollSource(m.source, m.interval, m.logger), func(reading location.Location) platform.Location {
		return mockReading(name, reading)
	})
	m.sub = m.locator.MockLocation(feed).Subscribe(rx.ObserverFuncs[platform.Status]{
		Next: func(status platform.Status) {
			m.logger.Debug().Int("status", status.Code).Msg("Mock location accepted")
		},
		Error: func(err error) {
			m.logger.Error().
				Err(err).
				Str("kind", reactivelocation.KindOf(err).String()).
				Msg("Mock feed failed")
		},
		Completed: func() {
			m.logger.Info().Msg("Mock feed finished")
		},
	})

	m.logger.Info().Dur("interval", m.interval).Msg("MockFeedService started successfully")
	return nil
}

// Stop ends the replay, which disables mock mode.
func (m *MockFeedService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		m.logger.Warn().Msg("MockFeedService is not running")
		return errors.New("mock feed service is not running")
	}
	m.running = false
	m.sub.Unsubscribe()
	m.sub = nil

	m.logger.Info().Msg("MockFeedService stopped successfully")
	return nil
}

// PollSource reads src every interval and emits each reading. It completes
// when src reports location.ErrTrackFinished; other read errors are logged
// and skipped.
func PollSource(src location.Provider, interval time.Duration, logger zerolog.Logger) rx.Observable[location.Location] {
	return rx.Create(func(s *rx.Subscriber[location.Location]) {
		ctx, cancel := context.WithCancel(context.Background())
		s.Add(cancel)

		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				reading, err := src.GetLocation(ctx)
				switch {
				case errors.Is(err, location.ErrTrackFinished):
					s.OnCompleted()
					return
				case ctx.Err() != nil:
					return
				case err != nil:
					logger.Warn().Err(err).Msg("Failed to read location source")
				default:
					s.OnNext(reading)
				}

				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
		}()
	})
}

func mockReading(provider string, reading location.Location) platform.Location {
	return platform.Location{
		Provider:  provider,
		Latitude:  reading.Latitude,
		Longitude: reading.Longitude,
		Altitude:  reading.Altitude,
		Accuracy:  reading.Accuracy,
		Speed:     reading.Speed,
		Bearing:   reading.Bearing,
		Time:      reading.Time,
	}
}
