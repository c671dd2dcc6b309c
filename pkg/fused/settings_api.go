package fused

import (
	"context"
	"slices"
	"time"

	"github.com/benmeehan/reactive-location/pkg/location"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/shirou/gopsutil/net"
)

const settingsCheckTimeout = 5 * time.Second

// SettingsAPI implements platform.SettingsAPI.
type SettingsAPI struct {
	service *Service
}

// CheckLocationSettings evaluates req on the dispatch pool.
func (a *SettingsAPI) CheckLocationSettings(c platform.Client, req platform.LocationSettingsRequest) (platform.PendingResult[platform.LocationSettingsResult], error) {
	if _, err := a.service.connectedClient(c); err != nil {
		return nil, err
	}

	result := newPendingResult(a.service.dispatch, platform.LocationSettingsResult{Status: interruptedStatus})
	dispatched := a.service.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), settingsCheckTimeout)
		defer cancel()
		result.complete(a.service.evaluateSettings(ctx, req))
	})
	if !dispatched {
		result.complete(result.interrupted)
	}
	return result, nil
}

func (s *Service) settingsStates(ctx context.Context) platform.LocationSettingsStates {
	gpsPresent := s.hasSource(location.KindGPS)
	networkPresent := s.hasSource(location.KindNetwork)
	fixedPresent := s.hasSource(location.KindFixed)

	networkUsable := networkPresent && s.isProviderEnabled(location.KindNetwork) && s.networkCheck(ctx)
	fixedUsable := fixedPresent && s.isProviderEnabled(location.KindFixed)

	return platform.LocationSettingsStates{
		GPSPresent:             gpsPresent,
		GPSUsable:              gpsPresent && s.isProviderEnabled(location.KindGPS),
		NetworkLocationPresent: networkPresent || fixedPresent,
		NetworkLocationUsable:  networkUsable || fixedUsable,
	}
}

func (s *Service) evaluateSettings(ctx context.Context, req platform.LocationSettingsRequest) platform.LocationSettingsResult {
	states := s.settingsStates(ctx)
	status := platform.Status{Code: platform.StatusSuccess}

	for _, r := range req.Requests {
		satisfied, resolvable := requestSatisfied(r.Priority, states)
		if satisfied {
			continue
		}
		if resolvable {
			status = platform.Status{
				Code:       platform.StatusResolutionRequired,
				Message:    "location settings must be changed for " + r.Priority.String(),
				Resolvable: true,
			}
			continue
		}
		// An unsatisfiable request outranks a resolvable one.
		status = platform.Status{
			Code:    platform.StatusSettingsChangeUnavailable,
			Message: "no location provider can satisfy " + r.Priority.String(),
		}
		break
	}

	s.logger.Debug().
		Bool("gps_usable", states.GPSUsable).
		Bool("network_usable", states.NetworkLocationUsable).
		Int("status", status.Code).
		Msg("Location settings checked")
	return platform.LocationSettingsResult{Status: status, States: states}
}

// requestSatisfied reports whether priority can be served with states and,
// if not, whether the user could fix it by enabling a present provider.
func requestSatisfied(priority platform.Priority, states platform.LocationSettingsStates) (satisfied, resolvable bool) {
	switch priority {
	case platform.PriorityHighAccuracy:
		if states.GPSPresent {
			return states.GPSUsable, true
		}
		return states.NetworkLocationUsable, states.NetworkLocationPresent
	case platform.PriorityBalancedPowerAccuracy:
		return states.IsLocationUsable(), states.GPSPresent || states.NetworkLocationPresent
	case platform.PriorityLowPower:
		if states.NetworkLocationPresent {
			return states.NetworkLocationUsable, true
		}
		return states.GPSUsable, states.GPSPresent
	default:
		return true, false
	}
}

// hasActiveInterface reports whether a non loopback interface is up.
func hasActiveInterface(ctx context.Context) bool {
	interfaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return false
	}
	for _, iface := range interfaces {
		if slices.Contains(iface.Flags, "loopback") {
			continue
		}
		if slices.Contains(iface.Flags, "up") && len(iface.Addrs) > 0 {
			return true
		}
	}
	return false
}
