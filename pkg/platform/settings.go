package platform

// LocationSettingsRequest lists the requests whose settings should be
// checked.
type LocationSettingsRequest struct {
	Requests   []LocationRequest
	AlwaysShow bool
}

// LocationSettingsStates reports provider availability.
type LocationSettingsStates struct {
	GPSPresent             bool
	GPSUsable              bool
	NetworkLocationPresent bool
	NetworkLocationUsable  bool
}

// IsLocationUsable reports whether any provider is usable.
func (s LocationSettingsStates) IsLocationUsable() bool {
	return s.GPSUsable || s.NetworkLocationUsable
}

// LocationSettingsResult is the outcome of a settings check. Its Status is
// success, resolution-required or settings-change-unavailable.
type LocationSettingsResult struct {
	Status Status
	States LocationSettingsStates
}

func (r LocationSettingsResult) GetStatus() Status {
	return r.Status
}

// SettingsAPI checks whether device settings satisfy location requests.
type SettingsAPI interface {
	CheckLocationSettings(c Client, req LocationSettingsRequest) (PendingResult[LocationSettingsResult], error)
}
