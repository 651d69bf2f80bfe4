package core

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable: the recognition engine is absent or audio
	// playback was refused. Reported as a notice, never fatal.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	// ErrServiceUnreachable: non-success status or transport failure talking
	// to the chat or speech service.
	ErrServiceUnreachable = errors.New("service unreachable")
	// ErrInvalidOperation: a precondition was violated (for example an
	// out-of-range transcript index). The operation was a no-op.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrStaleCompletion: an async result arrived for a superseded request.
	ErrStaleCompletion = errors.New("stale completion")
)

type Capability string

const (
	CapabilitySpeechRecognition Capability = "speech_recognition"
	CapabilityAudioPlayback     Capability = "audio_playback"
)

type CapabilityError struct {
	Capability Capability
	Err        error
}

func NewCapabilityError(capability Capability, err error) *CapabilityError {
	return &CapabilityError{Capability: capability, Err: err}
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Capability, ErrCapabilityUnavailable)
	}
	return fmt.Sprintf("%s: %s: %v", e.Capability, ErrCapabilityUnavailable, e.Err)
}

func (e *CapabilityError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCapabilityUnavailable}
	}
	return []error{ErrCapabilityUnavailable, e.Err}
}

// ServiceError describes a failed call to a remote service. StatusCode is
// zero for transport failures.
type ServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Service, ErrServiceUnreachable)
	}
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrServiceUnreachable}
	}
	return []error{ErrServiceUnreachable, e.Err}
}

// IsTransport reports whether the request never produced an HTTP status.
func (e *ServiceError) IsTransport() bool {
	return e.StatusCode == 0
}
