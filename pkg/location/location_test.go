package location

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benmeehan/reactive-location/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ggaFix     = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	ggaInvalid = "$GPGGA,123520,4807.038,N,01131.000,E,0,00,,,M,,M,,*58"
	rmcValid   = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
)

func TestReadFix_GGAWithRMC(t *testing.T) {
	input := strings.Join([]string{"garbage", "$GPGGA,partial", rmcValid, ggaFix}, "\r\n")

	loc, err := ReadFix(strings.NewReader(input))
	require.NoError(t, err)

	assert.InDelta(t, 48.1173, loc.Latitude, 1e-4)
	assert.InDelta(t, 11.5167, loc.Longitude, 1e-4)
	assert.InDelta(t, 545.4, loc.Altitude, 1e-9)
	assert.InDelta(t, 0.9, loc.Accuracy, 1e-9)
	assert.InDelta(t, 22.4*knotsToMetersPerSecond, loc.Speed, 1e-6)
	assert.InDelta(t, 84.4, loc.Bearing, 1e-9)
	assert.False(t, loc.Time.IsZero())
}

func TestReadFix_SkipsInvalidFix(t *testing.T) {
	input := ggaInvalid + "\n" + ggaFix + "\n"

	loc, err := ReadFix(strings.NewReader(input))
	require.NoError(t, err)
	assert.InDelta(t, 48.1173, loc.Latitude, 1e-4)
	assert.Zero(t, loc.Speed)
}

func TestReadFix_NoFix(t *testing.T) {
	_, err := ReadFix(strings.NewReader(ggaInvalid + "\n" + rmcValid + "\n"))
	assert.ErrorIs(t, err, ErrNoFix)
}

func TestParseWiFiAccessPoints(t *testing.T) {
	output := `AA\:BB\:CC\:DD\:EE\:FF:75
00\:14\:22\:01\:23\:45:100
ZZ\:BB\:CC\:DD\:EE\:FF:50
11\:22\:33\:44\:55\:66:n/a
`
	aps, err := parseWiFiAccessPoints(output)
	require.NoError(t, err)
	require.Len(t, aps, 2)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", aps[0].MACAddress)
	assert.InDelta(t, -62.5, aps[0].SignalStrength, 1e-9)
	assert.Equal(t, "00:14:22:01:23:45", aps[1].MACAddress)
	assert.InDelta(t, -50.0, aps[1].SignalStrength, 1e-9)
}

func TestParseCellTowers(t *testing.T) {
	output := `modem.location.3gpp.mcc                : 262
modem.location.3gpp.mnc                : 01
modem.location.3gpp.lac                : 1A2B
modem.location.3gpp.tac                : 000000
modem.location.3gpp.cid                : 01234567
modem.location.gps.utc                 : --
`
	towers, err := parseCellTowers(output)
	require.NoError(t, err)
	require.Len(t, towers, 1)

	assert.Equal(t, 262, towers[0].MobileCountryCode)
	assert.Equal(t, 1, towers[0].MobileNetworkCode)
	assert.Equal(t, 0x1A2B, towers[0].LocationAreaCode)
	assert.Equal(t, 0x01234567, towers[0].CellID)
}

func TestParseCellTowers_Incomplete(t *testing.T) {
	_, err := parseCellTowers("modem.location.3gpp.mcc : 262\n")
	assert.Error(t, err)
}

func TestIsValidMAC(t *testing.T) {
	assert.True(t, isValidMAC("00:14:22:01:23:45"))
	assert.True(t, isValidMAC("ff:ee:dd:cc:bb:aa"))
	assert.False(t, isValidMAC("00:14:22:01:23"))
	assert.False(t, isValidMAC("00:14:22:01:23:4"))
	assert.False(t, isValidMAC("00:14:22:01:23:GG"))
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider("office", 52.52, 13.405, 30)

	loc, err := p.GetLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 52.52, loc.Latitude)
	assert.Equal(t, 30.0, loc.Accuracy)
	assert.Equal(t, KindFixed, p.Kind())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GetLocation(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrackProvider_ReplaysOnce(t *testing.T) {
	p, err := NewTrackProvider(Track{
		Name:   "walk",
		Points: []TrackPoint{{Latitude: 1}, {Latitude: 2}},
	})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := p.GetLocation(ctx)
	require.NoError(t, err)
	second, err := p.GetLocation(ctx)
	require.NoError(t, err)
	_, err = p.GetLocation(ctx)

	assert.Equal(t, 1.0, first.Latitude)
	assert.Equal(t, 2.0, second.Latitude)
	assert.ErrorIs(t, err, ErrTrackFinished)
	assert.Equal(t, "track:walk", p.Name())
}

func TestTrackProvider_Loops(t *testing.T) {
	p, err := NewTrackProvider(Track{Loop: true, Points: []TrackPoint{{Latitude: 1}, {Latitude: 2}}})
	require.NoError(t, err)

	var got []float64
	for i := 0; i < 5; i++ {
		loc, err := p.GetLocation(context.Background())
		require.NoError(t, err)
		got = append(got, loc.Latitude)
	}
	assert.Equal(t, []float64{1, 2, 1, 2, 1}, got)
}

func TestNewTrackProvider_RequiresPoints(t *testing.T) {
	_, err := NewTrackProvider(Track{Name: "empty"})
	assert.Error(t, err)
}

func TestParseTrack(t *testing.T) {
	track, err := ParseTrack([]byte(`
name: harbour
interval: 2s
loop: true
points:
  - {latitude: 53.54, longitude: 9.98, accuracy: 5}
  - {latitude: 53.55, longitude: 9.99, speed: 1.2, bearing: 90}
`))
	require.NoError(t, err)

	assert.Equal(t, "harbour", track.Name)
	assert.Equal(t, 2*time.Second, track.Interval)
	assert.True(t, track.Loop)
	require.Len(t, track.Points, 2)
	assert.Equal(t, 90.0, track.Points[1].Bearing)
}

func TestLoadTrack(t *testing.T) {
	fileService := file.NewFileService()

	track, err := LoadTrack(filepath.Join("..", "..", "configs", "track.yaml"), fileService)
	require.NoError(t, err)
	assert.Equal(t, "english-garden", track.Name)
	assert.Len(t, track.Points, 4)

	jsonPath := filepath.Join(t.TempDir(), "track.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"lap","points":[{"latitude":1,"longitude":2}]}`), 0o600))
	track, err = LoadTrack(jsonPath, fileService)
	require.NoError(t, err)
	assert.Equal(t, "lap", track.Name)
	assert.Equal(t, 2.0, track.Points[0].Longitude)

	_, err = LoadTrack(filepath.Join(t.TempDir(), "missing.yaml"), fileService)
	assert.Error(t, err)
}
