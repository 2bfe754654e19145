package provider

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError is a network-level failure reaching the completion service.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a non-2xx response from the completion service.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion service status %d", e.Status)
	}
	return fmt.Sprintf("completion service status %d: %s", e.Status, e.Body)
}

// ProtocolError means the response arrived but did not carry completion text.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion protocol: %s: %v", e.Reason, e.Err)
	}
	return "completion protocol: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Marker renders a completion failure as the inline text that batch call paths
// carry forward in place of a completion.
func Marker(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return fmt.Sprintf("Error: API returned status %d", se.Status)
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return "Error: Unable to extract content from API response"
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "Error: " + te.Err.Error()
	}
	return "Error: " + err.Error()
}

// IsMarker reports whether text is a failure marker produced by Marker.
func IsMarker(text string) bool {
	return strings.HasPrefix(text, markerPrefix)
}

const markerPrefix = "Error: "

// Retryable reports whether a failed completion is worth another attempt:
// transport failures, rate limiting and server-side errors.
func Retryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Status == 429 || se.Status >= 500
	}
	return false
}
