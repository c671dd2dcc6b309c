package fused

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/reactive-location/pkg/platform"
)

// FusedLocationAPI implements platform.FusedLocationProviderAPI.
type FusedLocationAPI struct {
	service *Service
}

var errForeignClient = errors.New("client was not created by this service")

// connected returns c as a connected client of the service.
func (a *FusedLocationAPI) connected(c platform.Client) (*Client, error) {
	return a.service.connectedClient(c)
}

func (s *Service) connectedClient(c platform.Client) (*Client, error) {
	client, ok := c.(*Client)
	if !ok || client.service != s {
		return nil, errForeignClient
	}
	if !client.IsConnected() {
		return nil, platform.ErrNotConnected
	}
	return client, nil
}

func requireLocationPermission(c *Client) error {
	if c.host.HasPermission(platform.PermissionFineLocation) || c.host.HasPermission(platform.PermissionCoarseLocation) {
		return nil
	}
	return fmt.Errorf("%w: %s requires %s or %s", platform.ErrPermissionDenied, c.host.Name(),
		platform.PermissionCoarseLocation, platform.PermissionFineLocation)
}

func requireMockPermission(c *Client) error {
	if err := requireLocationPermission(c); err != nil {
		return err
	}
	if !c.host.HasPermission(platform.PermissionMockLocation) {
		return fmt.Errorf("%w: %s requires %s", platform.ErrPermissionDenied, c.host.Name(), platform.PermissionMockLocation)
	}
	return nil
}

// GetLastLocation returns the most recent fix, mock or real. It never reads
// a source.
func (a *FusedLocationAPI) GetLastLocation(c platform.Client) (*platform.Location, error) {
	client, err := a.connected(c)
	if err != nil {
		return nil, err
	}
	if err := requireLocationPermission(client); err != nil {
		return nil, err
	}
	return a.service.lastKnown(), nil
}

// RequestLocationUpdates starts delivering samples to listener. A listener
// registered again has its previous request replaced.
func (a *FusedLocationAPI) RequestLocationUpdates(c platform.Client, req platform.LocationRequest, listener platform.LocationListener) error {
	client, err := a.connected(c)
	if err != nil {
		return err
	}
	if err := requireLocationPermission(client); err != nil {
		return err
	}

	session := a.service.startSession(req, "listener:"+client.id, func(loc platform.Location) error {
		listener.OnLocationChanged(loc)
		return nil
	})
	previous, err := client.putListener(listener, session)
	if err != nil {
		session.stop()
		return err
	}
	if previous != nil {
		previous.stop()
	}
	return nil
}

// RemoveLocationUpdates stops delivery to listener. Removing an unknown
// listener is not an error.
func (a *FusedLocationAPI) RemoveLocationUpdates(c platform.Client, listener platform.LocationListener) error {
	client, err := a.connected(c)
	if err != nil {
		return err
	}
	session, err := client.takeListener(listener)
	if err != nil {
		return err
	}
	if session != nil {
		session.stop()
	}
	return nil
}

// RequestLocationUpdatesToken delivers samples to token until it is removed,
// independently of the client's lifetime.
func (a *FusedLocationAPI) RequestLocationUpdatesToken(c platform.Client, req platform.LocationRequest,
	token platform.DeliveryToken) (platform.PendingResult[platform.Status], error) {
	client, err := a.connected(c)
	if err != nil {
		return nil, err
	}
	if err := requireLocationPermission(client); err != nil {
		return nil, err
	}

	session := a.service.startSession(req, "token:"+token.ID(), token.Send)
	if previous, ok := a.service.tokens.Get(token.ID()); ok {
		previous.stop()
	}
	a.service.tokens.Set(token.ID(), session)

	result := newStatusResult(a.service.dispatch)
	result.completeAsync(platform.Status{Code: platform.StatusSuccess})
	return result, nil
}

// RemoveLocationUpdatesToken stops delivery to token.
func (a *FusedLocationAPI) RemoveLocationUpdatesToken(c platform.Client, token platform.DeliveryToken) (platform.PendingResult[platform.Status], error) {
	if _, err := a.connected(c); err != nil {
		return nil, err
	}
	if session, ok := a.service.tokens.Pop(token.ID()); ok {
		session.stop()
	}

	result := newStatusResult(a.service.dispatch)
	result.completeAsync(platform.Status{Code: platform.StatusSuccess})
	return result, nil
}

// SetMockMode enables or disables mock mode for c. Only one client may hold
// mock mode at a time.
func (a *FusedLocationAPI) SetMockMode(c platform.Client, enabled bool) (platform.PendingResult[platform.Status], error) {
	client, err := a.connected(c)
	if err != nil {
		return nil, err
	}
	if err := requireMockPermission(client); err != nil {
		return nil, err
	}

	status := platform.Status{Code: platform.StatusSuccess}
	s := a.service
	s.mu.Lock()
	switch {
	case enabled && s.mockOwner != "" && s.mockOwner != client.id:
		status = platform.Status{Code: platform.StatusError, Message: "mock mode is held by another client"}
	case enabled:
		s.mockOwner = client.id
	case s.mockOwner == client.id:
		s.mockOwner = ""
	}
	s.mu.Unlock()

	s.logger.Info().Str("client", client.id).Bool("enabled", enabled).Int("status", status.Code).Msg("Mock mode change requested")
	result := newStatusResult(s.dispatch)
	result.completeAsync(status)
	return result, nil
}

// SetMockLocation publishes loc to every update session. Mock mode must be
// held by c.
func (a *FusedLocationAPI) SetMockLocation(c platform.Client, loc platform.Location) (platform.PendingResult[platform.Status], error) {
	client, err := a.connected(c)
	if err != nil {
		return nil, err
	}
	if err := requireMockPermission(client); err != nil {
		return nil, err
	}

	s := a.service
	result := newStatusResult(s.dispatch)

	s.mu.Lock()
	owner := s.mockOwner
	s.mu.Unlock()
	if owner != client.id {
		result.completeAsync(platform.Status{Code: platform.StatusError, Message: "mock mode is not enabled"})
		return result, nil
	}

	loc.Mock = true
	if loc.Provider == "" {
		loc.Provider = "mock"
	}
	if loc.Time.IsZero() {
		loc.Time = time.Now()
	}
	s.record(loc)
	s.broadcast(loc)

	result.completeAsync(platform.Status{Code: platform.StatusSuccess})
	return result, nil
}

func (s *Service) releaseMockMode(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mockOwner == clientID {
		s.mockOwner = ""
		s.logger.Info().Str("client", clientID).Msg("Mock mode released on disconnect")
	}
}
