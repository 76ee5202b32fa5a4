package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTransport          = errors.New("protocol: transport failure")
	ErrMalformedResponse  = errors.New("protocol: malformed response")
	ErrInvariantViolation = errors.New("protocol: invariant violation")
	ErrPayloadTooLarge    = errors.New("protocol: payload too large")
	ErrIllegalTransition  = errors.New("protocol: illegal session transition")
	ErrUnsupported        = errors.New("protocol: instruction not supported by generation")
	ErrDeviceStatus       = errors.New("protocol: device status")
)

// StatusError is a non-success device status with its mapped description.
type StatusError struct {
	Status      Status
	Description string
	// Diagnostic is the ASCII tail the device returns for payload validation failures.
	Diagnostic string
}

// NewStatusError maps status to a StatusError, attaching data as a
// diagnostic when the status is one of the payload-validation codes.
func NewStatusError(status Status, data []byte) *StatusError {
	e := &StatusError{Status: status, Description: Description(status)}
	if status.carriesDiagnostic() && len(data) > 0 {
		e.Diagnostic = asciiDiagnostic(data)
	}
	return e
}

func (e *StatusError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("device status 0x%04x: %s : %s", uint16(e.Status), e.Description, e.Diagnostic)
	}
	return fmt.Sprintf("device status 0x%04x: %s", uint16(e.Status), e.Description)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrDeviceStatus
}

// IsStatus reports whether err carries the given device status.
func IsStatus(err error, status Status) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == status
}

func asciiDiagnostic(data []byte) string {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b == 0 {
			break
		}
		if b < 0x20 || b > 0x7e {
			continue
		}
		out = append(out, b)
	}
	return string(out)
}
