package apiclient

import (
	"errors"
	"fmt"
)

// ErrNetworkUnavailable is returned when no HTTP response was received:
// connection refused, DNS failure, timeout, or a cancelled context.
var ErrNetworkUnavailable = errors.New("network unavailable")

// RequestFailedError is returned for any non-2xx response.
type RequestFailedError struct {
	Status int
	Detail string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed: %d %s", e.Status, e.Detail)
}

// DecodeFailedError is returned when a 2xx response body is not valid JSON
// or does not match the expected payload shape.
type DecodeFailedError struct {
	Cause error
}

func (e *DecodeFailedError) Error() string {
	return fmt.Sprintf("decode failed: %v", e.Cause)
}

func (e *DecodeFailedError) Unwrap() error { return e.Cause }

// networkError keeps the transport cause while matching ErrNetworkUnavailable.
type networkError struct {
	cause error
}

func (e *networkError) Error() string {
	return fmt.Sprintf("%s: %v", ErrNetworkUnavailable, e.cause)
}

func (e *networkError) Is(target error) bool { return target == ErrNetworkUnavailable }

func (e *networkError) Unwrap() error { return e.cause }

// StatusOf returns the HTTP status carried by err, or 0 when err is not a RequestFailedError.
func StatusOf(err error) int {
	var rf *RequestFailedError
	if errors.As(err, &rf) {
		return rf.Status
	}
	return 0
}
