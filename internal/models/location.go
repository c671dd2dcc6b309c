package models

import (
	"time"
)

// Location represents a geographical location with associated metadata, as
// published to delivery endpoints.
type Location struct {
	DeviceID  string    `json:"device_id"`
	TokenID   string    `json:"token_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude,omitempty"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed,omitempty"`
	Bearing   float64   `json:"bearing,omitempty"`
	Mock      bool      `json:"mock,omitempty"`
}
