// Package platform describes the fused-location platform the reactive facade
// adapts: connectable clients, deferred results, the fused location API and
// the settings API. pkg/fused ships an in-process implementation.
package platform

import (
	"errors"
	"fmt"
)

// Permission names a capability the host must hold.
type Permission string

const (
	PermissionCoarseLocation Permission = "ACCESS_COARSE_LOCATION"
	PermissionFineLocation   Permission = "ACCESS_FINE_LOCATION"
	PermissionMockLocation   Permission = "ACCESS_MOCK_LOCATION"
)

// ErrPermissionDenied is returned by platform calls the host lacks the
// capability for.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNotConnected is returned when a call is made on a client that is not
// connected.
var ErrNotConnected = errors.New("client is not connected")

// HostContext is the application environment a client is created for.
type HostContext interface {
	Name() string
	HasPermission(p Permission) bool
}

// API identifies a platform API a client negotiates at connect time.
// MinVersion is a semver constraint the platform version must satisfy.
type API struct {
	Name       string
	MinVersion string
}

// LocationServicesAPI is the API set used by every location operation.
var LocationServicesAPI = API{Name: "LocationServices.API", MinVersion: ">= 1.0.0"}

// Connection result codes.
const (
	ConnectionSuccess                      = 0
	ConnectionServiceMissing               = 1
	ConnectionServiceVersionUpdateRequired = 2
	ConnectionServiceDisabled              = 3
	ConnectionNetworkError                 = 7
	ConnectionInternalError                = 8
	ConnectionDeveloperError               = 10
	ConnectionCanceled                     = 13
	ConnectionAPIUnavailable               = 16
)

// Suspension causes.
const (
	CauseServiceDisconnected = 1
	CauseNetworkLost         = 2
)

// ConnectionResult describes the outcome of a connect attempt.
type ConnectionResult struct {
	Code    int
	Message string
}

// IsSuccess reports whether the connect attempt succeeded.
func (r ConnectionResult) IsSuccess() bool {
	return r.Code == ConnectionSuccess
}

func (r ConnectionResult) String() string {
	if r.Message == "" {
		return fmt.Sprintf("ConnectionResult{code=%d}", r.Code)
	}
	return fmt.Sprintf("ConnectionResult{code=%d, message=%s}", r.Code, r.Message)
}

// ConnectionCallbacks are invoked on a platform chosen goroutine.
type ConnectionCallbacks struct {
	OnConnected           func()
	OnConnectionSuspended func(cause int)
	OnConnectionFailed    func(result ConnectionResult)
}

// Client is a connectable session to a set of platform APIs.
type Client interface {
	// Connect starts connecting. The outcome is reported through the
	// registered callbacks.
	Connect() error
	Disconnect()
	IsConnected() bool
	IsConnecting() bool
	// RegisterConnectionCallbacks adds callbacks and returns a function that
	// removes them again.
	RegisterConnectionCallbacks(callbacks ConnectionCallbacks) (unregister func())
}

// ClientFactory builds unconnected clients.
type ClientFactory interface {
	NewClient(host HostContext, apis []API) (Client, error)
}

// LocationServices bundles the platform entry points the facade calls.
type LocationServices struct {
	Clients  ClientFactory
	Fused    FusedLocationProviderAPI
	Settings SettingsAPI
}
