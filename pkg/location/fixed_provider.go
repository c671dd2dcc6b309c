package location

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/reactive-location/pkg/file"
	"gopkg.in/yaml.v3"
)

// StaticProvider always reports the same coordinates.
type StaticProvider struct {
	name     string
	location Location
}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider(name string, latitude, longitude, accuracy float64) *StaticProvider {
	return &StaticProvider{
		name: name,
		location: Location{
			Latitude:  latitude,
			Longitude: longitude,
			Accuracy:  accuracy,
		},
	}
}

func (p *StaticProvider) Name() string { return p.name }

func (p *StaticProvider) Kind() Kind { return KindFixed }

func (p *StaticProvider) GetLocation(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	loc := p.location
	loc.Time = time.Now()
	return loc, nil
}

func (p *StaticProvider) Close() error { return nil }

// TrackPoint is one entry of a track file.
type TrackPoint struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Altitude  float64 `yaml:"altitude" json:"altitude"`
	Accuracy  float64 `yaml:"accuracy" json:"accuracy"`
	Speed     float64 `yaml:"speed" json:"speed"`
	Bearing   float64 `yaml:"bearing" json:"bearing"`
}

// Track is a recorded route replayed by TrackProvider.
type Track struct {
	Name     string        `yaml:"name" json:"name"`
	Interval time.Duration `yaml:"interval" json:"interval"`
	Loop     bool          `yaml:"loop" json:"loop"`
	Points   []TrackPoint  `yaml:"points" json:"points"`
}

// ErrTrackFinished is returned once a non looping track has been replayed.
var ErrTrackFinished = errors.New("track finished")

// TrackProvider replays the points of a Track, one per GetLocation call.
type TrackProvider struct {
	track Track

	mu   sync.Mutex
	next int
}

// NewTrackProvider creates a TrackProvider for track.
func NewTrackProvider(track Track) (*TrackProvider, error) {
	if len(track.Points) == 0 {
		return nil, errors.New("track has no points")
	}
	return &TrackProvider{track: track}, nil
}

// LoadTrack reads a track from a YAML file, or a JSON file when path ends in
// .json.
func LoadTrack(path string, fileClient file.FileOperations) (Track, error) {
	var track Track
	read := fileClient.ReadYamlFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		read = fileClient.ReadJsonFile
	}
	if err := read(path, &track); err != nil {
		return Track{}, fmt.Errorf("failed to read track %s: %w", path, err)
	}
	return track, nil
}

// ParseTrack decodes a YAML track. JSON input is accepted as well.
func ParseTrack(data []byte) (Track, error) {
	var track Track
	if err := yaml.Unmarshal(data, &track); err != nil {
		return Track{}, fmt.Errorf("failed to parse track: %w", err)
	}
	return track, nil
}

func (p *TrackProvider) Name() string { return "track:" + p.track.Name }

func (p *TrackProvider) Kind() Kind { return KindFixed }

// Interval returns the replay cadence recorded in the track.
func (p *TrackProvider) Interval() time.Duration { return p.track.Interval }

// GetLocation returns the next point of the track.
func (p *TrackProvider) GetLocation(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.next >= len(p.track.Points) {
		if !p.track.Loop {
			return Location{}, ErrTrackFinished
		}
		p.next = 0
	}
	pt := p.track.Points[p.next]
	p.next++

	return Location{
		Latitude:  pt.Latitude,
		Longitude: pt.Longitude,
		Altitude:  pt.Altitude,
		Accuracy:  pt.Accuracy,
		Speed:     pt.Speed,
		Bearing:   pt.Bearing,
		Time:      time.Now(),
	}, nil
}

func (p *TrackProvider) Close() error { return nil }
