// Package fused is an in-process implementation of the platform contract.
// It fuses a set of location sources behind connectable clients, dispatches
// callbacks on a worker pool and supports mock mode, delivery tokens and
// settings checks.
package fused

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/reactive-location/internal/utils"
	"github.com/benmeehan/reactive-location/pkg/location"
	"github.com/benmeehan/reactive-location/pkg/platform"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// ErrServiceClosed is returned by calls made after Close.
var ErrServiceClosed = errors.New("location service is closed")

const (
	defaultVersion       = "1.0.0"
	defaultWorkers       = 4
	defaultQueueSize     = 256
	defaultSourceTimeout = 10 * time.Second
	defaultInterval      = 5 * time.Second
)

// Config configures a Service.
type Config struct {
	// Version is the semver version reported to API negotiation.
	Version string
	// SupportedAPIs lists API names clients may negotiate. Defaults to the
	// location services API.
	SupportedAPIs []string
	Workers       int
	QueueSize     int
	Sources       []location.Provider
	SourceTimeout time.Duration
	// NetworkCheck reports whether the host is online. Defaults to an
	// interface scan.
	NetworkCheck func(ctx context.Context) bool
}

// Service is the platform process. Create clients with NewClient and pass
// LocationServices to the reactive provider.
type Service struct {
	version       *semver.Version
	supportedAPIs map[string]struct{}
	sources       []location.Provider
	sourceTimeout time.Duration
	networkCheck  func(ctx context.Context) bool
	pool          *utils.WorkerPool
	logger        zerolog.Logger

	clients  cmap.ConcurrentMap[string, *Client]
	sessions cmap.ConcurrentMap[string, *updateSession]
	tokens   cmap.ConcurrentMap[string, *updateSession]

	mu               sync.Mutex
	enabled          bool
	providerDisabled map[location.Kind]bool
	lastFix          *platform.Location
	mockOwner        string
	closed           bool
}

// NewService starts the dispatch pool and returns a ready Service.
func NewService(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}
	version, err := semver.NewVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid service version %q: %w", cfg.Version, err)
	}
	if len(cfg.SupportedAPIs) == 0 {
		cfg.SupportedAPIs = []string{platform.LocationServicesAPI.Name}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = defaultSourceTimeout
	}
	if cfg.NetworkCheck == nil {
		cfg.NetworkCheck = hasActiveInterface
	}

	s := &Service{
		version:          version,
		supportedAPIs:    utils.SliceToSet(cfg.SupportedAPIs),
		sources:          cfg.Sources,
		sourceTimeout:    cfg.SourceTimeout,
		networkCheck:     cfg.NetworkCheck,
		pool:             utils.NewWorkerPool(cfg.Workers, cfg.QueueSize),
		logger:           logger.With().Str("component", "fused").Logger(),
		clients:          cmap.New[*Client](),
		sessions:         cmap.New[*updateSession](),
		tokens:           cmap.New[*updateSession](),
		enabled:          true,
		providerDisabled: make(map[location.Kind]bool),
	}
	s.logger.Info().
		Str("version", version.String()).
		Int("sources", len(cfg.Sources)).
		Int("workers", cfg.Workers).
		Msg("Fused location service started")
	return s, nil
}

// LocationServices returns the entry points backed by s.
func (s *Service) LocationServices() platform.LocationServices {
	return platform.LocationServices{
		Clients:  s,
		Fused:    &FusedLocationAPI{service: s},
		Settings: &SettingsAPI{service: s},
	}
}

// SetEnabled toggles the service. Connect attempts fail with
// ConnectionServiceDisabled while disabled.
func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

// SetProviderEnabled toggles a class of sources, the way a user switches a
// location provider off in the device settings.
func (s *Service) SetProviderEnabled(kind location.Kind, enabled bool) {
	s.mu.Lock()
	s.providerDisabled[kind] = !enabled
	s.mu.Unlock()
	s.logger.Info().Str("provider", string(kind)).Bool("enabled", enabled).Msg("Location provider toggled")
}

// Suspend drops every connected client with cause. Clients reconnect on
// their own right after the suspension is reported.
func (s *Service) Suspend(cause int) {
	s.logger.Warn().Int("cause", cause).Int("clients", s.clients.Count()).Msg("Suspending client connections")
	for _, c := range s.clients.Items() {
		c.suspend(cause)
	}
}

// Poll reads a fix for priority and caches it as the last known location.
func (s *Service) Poll(ctx context.Context, priority platform.Priority) (platform.Location, error) {
	loc, ok := s.fix(ctx, priority)
	if !ok {
		return platform.Location{}, location.ErrNoFix
	}
	return loc, nil
}

// Close disconnects every client, stops token deliveries and waits for
// queued callbacks to run.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	for _, c := range s.clients.Items() {
		c.Disconnect()
	}
	for id, session := range s.tokens.Items() {
		session.stop()
		s.tokens.Remove(id)
	}

	var errs []error
	for _, src := range s.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close source %s: %w", src.Name(), err))
		}
	}

	s.pool.Shutdown()
	s.logger.Info().Msg("Fused location service stopped")
	return errors.Join(errs...)
}

// NewClient implements platform.ClientFactory.
func (s *Service) NewClient(host platform.HostContext, apis []platform.API) (platform.Client, error) {
	if host == nil {
		return nil, errors.New("host context is required")
	}
	if len(apis) == 0 {
		return nil, errors.New("at least one API is required")
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrServiceClosed
	}
	return newClient(s, host, apis), nil
}

func (s *Service) dispatch(task func()) bool {
	return s.pool.Submit(task)
}

// negotiate checks apis against the service.
func (s *Service) negotiate(apis []platform.API) platform.ConnectionResult {
	s.mu.Lock()
	enabled, closed := s.enabled, s.closed
	s.mu.Unlock()

	switch {
	case closed:
		return platform.ConnectionResult{Code: platform.ConnectionServiceMissing, Message: "service closed"}
	case !enabled:
		return platform.ConnectionResult{Code: platform.ConnectionServiceDisabled, Message: "service disabled"}
	}

	for _, api := range apis {
		if _, ok := s.supportedAPIs[api.Name]; !ok {
			return platform.ConnectionResult{
				Code:    platform.ConnectionAPIUnavailable,
				Message: fmt.Sprintf("api %s is not available", api.Name),
			}
		}
		if api.MinVersion == "" {
			continue
		}
		constraint, err := semver.NewConstraint(api.MinVersion)
		if err != nil {
			return platform.ConnectionResult{
				Code:    platform.ConnectionDeveloperError,
				Message: fmt.Sprintf("invalid version constraint %q for %s", api.MinVersion, api.Name),
			}
		}
		if !constraint.Check(s.version) {
			return platform.ConnectionResult{
				Code:    platform.ConnectionServiceVersionUpdateRequired,
				Message: fmt.Sprintf("%s requires %s, service is %s", api.Name, api.MinVersion, s.version),
			}
		}
	}
	return platform.ConnectionResult{Code: platform.ConnectionSuccess}
}

func (s *Service) isProviderEnabled(kind location.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.providerDisabled[kind]
}

func (s *Service) hasSource(kind location.Kind) bool {
	for _, src := range s.sources {
		if src.Kind() == kind {
			return true
		}
	}
	return false
}

// sourceOrder lists the source kinds consulted for priority, best first.
func sourceOrder(priority platform.Priority) []location.Kind {
	switch priority {
	case platform.PriorityHighAccuracy:
		return []location.Kind{location.KindGPS, location.KindNetwork, location.KindFixed}
	case platform.PriorityBalancedPowerAccuracy:
		return []location.Kind{location.KindNetwork, location.KindGPS, location.KindFixed}
	case platform.PriorityLowPower:
		return []location.Kind{location.KindNetwork, location.KindFixed}
	default:
		return nil
	}
}

// fix reads the first available source for priority. PriorityNoPower never
// reads a source and returns the cached fix instead.
func (s *Service) fix(ctx context.Context, priority platform.Priority) (platform.Location, bool) {
	for _, kind := range sourceOrder(priority) {
		if !s.isProviderEnabled(kind) {
			continue
		}
		for _, src := range s.sources {
			if src.Kind() != kind {
				continue
			}
			readCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
			reading, err := src.GetLocation(readCtx)
			cancel()
			if err != nil {
				s.logger.Debug().Err(err).Str("source", src.Name()).Msg("Location source unavailable")
				continue
			}
			loc := toPlatformLocation(src, reading)
			s.record(loc)
			return loc, true
		}
	}

	last := s.lastKnown()
	if last == nil || priority != platform.PriorityNoPower {
		return platform.Location{}, false
	}
	return *last, true
}

func (s *Service) record(loc platform.Location) {
	s.mu.Lock()
	s.lastFix = &loc
	s.mu.Unlock()
}

func (s *Service) lastKnown() *platform.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFix == nil {
		return nil
	}
	loc := *s.lastFix
	return &loc
}

func (s *Service) mockActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mockOwner != ""
}

// broadcast pushes loc to every active update session.
func (s *Service) broadcast(loc platform.Location) {
	for _, session := range s.sessions.Items() {
		session.push(loc)
	}
}

func toPlatformLocation(src location.Provider, reading location.Location) platform.Location {
	t := reading.Time
	if t.IsZero() {
		t = time.Now()
	}
	return platform.Location{
		Provider:  string(src.Kind()),
		Latitude:  reading.Latitude,
		Longitude: reading.Longitude,
		Altitude:  reading.Altitude,
		Accuracy:  reading.Accuracy,
		Speed:     reading.Speed,
		Bearing:   reading.Bearing,
		Time:      t,
	}
}
