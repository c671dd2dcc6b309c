package reactivelocation

import (
	"errors"
	"fmt"

	"github.com/benmeehan/reactive-location/pkg/platform"
)

// ErrorKind categorises stream errors.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConnectionFailed: the initial connect did not succeed.
	KindConnectionFailed
	// KindConnectionSuspended: an established connection dropped.
	KindConnectionSuspended
	// KindStatusFailed: a deferred call completed with a rejected status.
	KindStatusFailed
	// KindPermissionDenied: the platform refused a call for lack of capability.
	KindPermissionDenied
	// KindPlatformError: any other failure raised by a platform call.
	KindPlatformError
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectionFailed:
		return "connection_failed"
	case KindConnectionSuspended:
		return "connection_suspended"
	case KindStatusFailed:
		return "status_failed"
	case KindPermissionDenied:
		return "permission_denied"
	case KindPlatformError:
		return "platform_error"
	default:
		return "unknown"
	}
}

// Sentinels matched with errors.Is.
var (
	ErrConnectionFailed    = errors.New("connection failed")
	ErrConnectionSuspended = errors.New("connection suspended")
	ErrStatusFailed        = errors.New("status failed")
	ErrPermissionDenied    = platform.ErrPermissionDenied
	ErrPlatform            = errors.New("platform error")
)

// ConnectionError reports a failed connect attempt.
type ConnectionError struct {
	Result platform.ConnectionResult
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("error connecting to location services: %s", e.Result)
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// ConnectionSuspendedError reports a connection that dropped while in use.
type ConnectionSuspendedError struct {
	Cause int
}

func (e *ConnectionSuspendedError) Error() string {
	return fmt.Sprintf("connection to location services suspended (cause %d)", e.Cause)
}

func (e *ConnectionSuspendedError) Is(target error) bool {
	return target == ErrConnectionSuspended
}

// StatusError reports a deferred result whose status was not accepted.
type StatusError struct {
	Status platform.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unsuccessful status: %s", e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatusFailed
}

// PlatformError wraps a failure raised synchronously by a platform call.
type PlatformError struct {
	Op    string
	Cause error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *PlatformError) Unwrap() error {
	return e.Cause
}

func (e *PlatformError) Is(target error) bool {
	return target == ErrPlatform
}

// platformError passes permission failures through untouched and wraps
// everything else.
func platformError(op string, err error) error {
	if errors.Is(err, platform.ErrPermissionDenied) {
		return err
	}
	return &PlatformError{Op: op, Cause: err}
}

// KindOf returns the kind of a stream error.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConnectionFailed):
		return KindConnectionFailed
	case errors.Is(err, ErrConnectionSuspended):
		return KindConnectionSuspended
	case errors.Is(err, ErrStatusFailed):
		return KindStatusFailed
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrPlatform):
		return KindPlatformError
	default:
		return KindUnknown
	}
}
