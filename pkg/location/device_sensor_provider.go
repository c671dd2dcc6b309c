package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

const knotsToMetersPerSecond = 0.514444

// ErrNoFix is returned when the receiver produced no usable position.
var ErrNoFix = errors.New("no valid GPS data found")

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port        string        // Serial port to which the GPS device is connected
	baudRate    int           // Baud rate for the serial communication
	readTimeout time.Duration // Upper bound for a single read
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int, readTimeout time.Duration) *DeviceSensorProvider {
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	return &DeviceSensorProvider{
		port:        port,
		baudRate:    baudRate,
		readTimeout: readTimeout,
	}
}

func (d *DeviceSensorProvider) Name() string { return "gps:" + d.port }

func (d *DeviceSensorProvider) Kind() Kind { return KindGPS }

// GetLocation reads GPS data from the device and returns the device's location.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context) (Location, error) {
	c := &serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: d.readTimeout}
	s, err := serial.OpenPort(c)
	if err != nil {
		return Location{}, err
	}
	defer s.Close() // Ensure the port is closed when done

	// Closing the port unblocks the scanner when ctx ends first.
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	loc, err := ReadFix(s)
	if err != nil && ctx.Err() != nil {
		return Location{}, ctx.Err()
	}
	return loc, err
}

// Close is a no-op; the port is opened per read.
func (d *DeviceSensorProvider) Close() error {
	return nil
}

// ReadFix scans NMEA sentences from r until a GGA sentence with a valid fix
// arrives. Speed and bearing are taken from the latest valid RMC sentence
// seen before it.
func ReadFix(r io.Reader) (Location, error) {
	var rmc *nmea.RMC

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			// Partial sentences are common right after the port opens.
			continue
		}

		switch s := sentence.(type) {
		case nmea.RMC:
			if s.Validity == nmea.ValidRMC {
				rmc = &s
			}
		case nmea.GGA:
			if s.FixQuality == nmea.Invalid {
				continue
			}
			loc := Location{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Altitude:  s.Altitude,
				Accuracy:  s.HDOP, // Use HDOP as a proxy for accuracy
				Time:      time.Now(),
			}
			if rmc != nil {
				loc.Speed = rmc.Speed * knotsToMetersPerSecond
				loc.Bearing = rmc.Course
			}
			return loc, nil
		}
	}

	// Check for any scanner errors
	if err := scanner.Err(); err != nil {
		return Location{}, err
	}

	return Location{}, ErrNoFix
}
