package platform

import "fmt"

// Status codes.
const (
	StatusSuccessCache              = -1
	StatusSuccess                   = 0
	StatusResolutionRequired        = 6
	StatusInternalError             = 8
	StatusError                     = 13
	StatusInterrupted               = 14
	StatusTimeout                   = 15
	StatusCanceled                  = 16
	StatusSettingsChangeUnavailable = 8502
)

// StatusKind is the tri-state summary of a Status.
type StatusKind int

const (
	StatusKindSuccess StatusKind = iota
	StatusKindResolvable
	StatusKindTerminal
)

func (k StatusKind) String() string {
	switch k {
	case StatusKindSuccess:
		return "success"
	case StatusKindResolvable:
		return "resolvable"
	default:
		return "terminal"
	}
}

// Status is the outcome of a deferred platform call.
type Status struct {
	Code    int
	Message string
	// Resolvable is set when the user can fix the failure, e.g. by enabling
	// a location provider.
	Resolvable bool
}

// IsSuccess reports whether the status represents success.
func (s Status) IsSuccess() bool {
	return s.Code <= StatusSuccess
}

// Kind summarises the status.
func (s Status) Kind() StatusKind {
	switch {
	case s.IsSuccess():
		return StatusKindSuccess
	case s.Resolvable:
		return StatusKindResolvable
	default:
		return StatusKindTerminal
	}
}

// GetStatus makes Status a Result on its own.
func (s Status) GetStatus() Status {
	return s
}

func (s Status) String() string {
	if s.Message == "" {
		return fmt.Sprintf("Status{code=%d, kind=%s}", s.Code, s.Kind())
	}
	return fmt.Sprintf("Status{code=%d, kind=%s, message=%s}", s.Code, s.Kind(), s.Message)
}

// Result is anything carrying a Status.
type Result interface {
	GetStatus() Status
}

// PendingResult is a one-shot deferred result. It completes at most once.
type PendingResult[T Result] interface {
	// SetResultCallback registers the completion callback. If the result is
	// already available the callback still runs exactly once.
	SetResultCallback(callback func(result T))
	// Cancel requests cancellation. Canceling before completion suppresses
	// the callback; afterwards it has no effect.
	Cancel()
	IsCanceled() bool
}
