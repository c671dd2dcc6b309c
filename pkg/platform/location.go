package platform

import (
	"fmt"
	"strings"
	"time"
)

// Location is a single location sample.
type Location struct {
	Provider  string
	Latitude  float64
	Longitude float64
	Altitude  float64
	Accuracy  float64 // meters
	Speed     float64 // meters per second
	Bearing   float64 // degrees
	Time      time.Time
	Mock      bool
}

// Priority tells the platform how to trade accuracy for power.
type Priority int

const (
	PriorityHighAccuracy Priority = iota
	PriorityBalancedPowerAccuracy
	PriorityLowPower
	PriorityNoPower
)

func (p Priority) String() string {
	switch p {
	case PriorityHighAccuracy:
		return "high_accuracy"
	case PriorityBalancedPowerAccuracy:
		return "balanced"
	case PriorityLowPower:
		return "low_power"
	case PriorityNoPower:
		return "no_power"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority parses the names produced by Priority.String.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high_accuracy", "high":
		return PriorityHighAccuracy, nil
	case "balanced", "":
		return PriorityBalancedPowerAccuracy, nil
	case "low_power", "low":
		return PriorityLowPower, nil
	case "no_power", "passive":
		return PriorityNoPower, nil
	}
	return 0, fmt.Errorf("unknown location priority %q", s)
}

// LocationRequest describes the cadence and accuracy of requested updates.
type LocationRequest struct {
	Priority        Priority
	Interval        time.Duration
	FastestInterval time.Duration
	// NumUpdates stops delivery after that many samples. Zero means no limit.
	NumUpdates int
	// ExpirationDuration stops delivery after the duration. Zero means never.
	ExpirationDuration time.Duration
}

// LocationListener receives samples for continuous update requests.
// Implementations must be comparable; pointer receivers are expected.
type LocationListener interface {
	OnLocationChanged(location Location)
}

// DeliveryToken is a caller owned endpoint the platform delivers samples to
// out of band of any stream subscription.
type DeliveryToken interface {
	ID() string
	Send(location Location) error
}

// FusedLocationProviderAPI is the fused location entry point.
// Errors returned synchronously are raised by the platform, such as
// ErrPermissionDenied or ErrNotConnected.
type FusedLocationProviderAPI interface {
	// GetLastLocation returns nil when no location is known.
	GetLastLocation(c Client) (*Location, error)
	RequestLocationUpdates(c Client, req LocationRequest, listener LocationListener) error
	RemoveLocationUpdates(c Client, listener LocationListener) error
	RequestLocationUpdatesToken(c Client, req LocationRequest, token DeliveryToken) (PendingResult[Status], error)
	RemoveLocationUpdatesToken(c Client, token DeliveryToken) (PendingResult[Status], error)
	SetMockMode(c Client, enabled bool) (PendingResult[Status], error)
	SetMockLocation(c Client, location Location) (PendingResult[Status], error)
}
