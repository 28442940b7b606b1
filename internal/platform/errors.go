package platform

import (
	"errors"
	"fmt"
)

// Sentinel errors for platform API calls.
//
// Every failed call returns a *RequestError that wraps ErrRequestFailed, so
// callers can branch with errors.Is or inspect the status with errors.As:
//
//	var reqErr *platform.RequestError
//	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnauthorized {
//	    // bad API key
//	}
var (
	// ErrRequestFailed indicates the platform did not accept the request.
	ErrRequestFailed = errors.New("platform: request failed")

	// ErrMissingAPIKey indicates the client was built without an API key.
	ErrMissingAPIKey = errors.New("platform: api key is missing")

	// ErrInvalidResponse indicates a 200/201 whose body is not a JSON object.
	ErrInvalidResponse = errors.New("platform: response is not a JSON object")
)

// RequestError describes a failed platform call.
type RequestError struct {
	// Endpoint is the path relative to the server URL, e.g. "payment/check".
	Endpoint string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Body is the start of the response body, for diagnostics.
	Body string

	// Err is the underlying cause, if any.
	Err error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("platform: %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("platform: %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("platform: %s: %v", e.Endpoint, e.Err)
	}
}

// Is makes every RequestError match ErrRequestFailed.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
