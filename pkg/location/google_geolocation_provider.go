package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client     *maps.Client // Maps API client for making geolocation requests
	modemIndex int          // ModemManager index used for cell tower lookups
	logger     zerolog.Logger
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int, logger zerolog.Logger) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:     c,
		modemIndex: modemIndex,
		logger:     logger,
	}, nil
}

func (g *GoogleGeolocationProvider) Name() string { return "google-geolocation" }

func (g *GoogleGeolocationProvider) Kind() Kind { return KindNetwork }

// GetLocation retrieves the device's location using Google Maps Geolocation API.
// Wi-Fi and cell observations are best effort; without them the request
// falls back to IP based lookup.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (Location, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := &maps.GeolocationRequest{ConsiderIP: true}

	wifiAPs, err := getWiFiAccessPoints(ctx)
	if err != nil {
		g.logger.Debug().Err(err).Msg("Wi-Fi scan unavailable")
	} else {
		req.WiFiAccessPoints = wifiAPs
	}

	cellTowers, err := getCellTowers(ctx, g.modemIndex)
	if err != nil {
		g.logger.Debug().Err(err).Int("modem", g.modemIndex).Msg("Cell tower lookup unavailable")
	} else {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req) // Send the geolocation request
	if err != nil {
		return Location{}, err
	}

	return Location{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
		Time:      time.Now(),
	}, nil
}

// Close releases nothing; the maps client holds no persistent connection.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
