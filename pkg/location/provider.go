package location

import (
	"context"
	"time"
)

// Kind classifies a location source.
type Kind string

const (
	// KindGPS sources read a satellite receiver.
	KindGPS Kind = "gps"
	// KindNetwork sources resolve Wi-Fi and cell observations remotely.
	KindNetwork Kind = "network"
	// KindFixed sources report preconfigured coordinates.
	KindFixed Kind = "fixed"
)

// Location represents the geographical coordinates of a device as read from
// a single source.
type Location struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Accuracy  float64 // meters
	Speed     float64 // meters per second
	Bearing   float64 // degrees
	Time      time.Time
}

// Provider interface defines the methods for location providers
type Provider interface {
	Name() string
	Kind() Kind
	GetLocation(ctx context.Context) (Location, error)
	Close() error
}
