package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

// execFn represents a func to operate on a response.
type execFn func(ctx context.Context, response *http.Response) error

var (
	// ErrNotFound is returned when a descriptor has no target URL.
	// Such a descriptor never reaches the network.
	ErrNotFound = errors.New("target not found")
	// ErrUnauthorized is wrapped by [UnexpectedStatusError] when the
	// server responds with 401 Unauthorized.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrServerError is wrapped by [UnexpectedStatusError] for 5xx
	// responses when [WithStatusValidation] is enabled.
	ErrServerError = errors.New("server error")
	// ErrUnexpectedStatusCode is wrapped by [UnexpectedStatusError] for
	// non-2xx, non-5xx responses when [WithStatusValidation] is enabled.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrUnableToDecodeData is returned when a successful response carries
	// no payload. Empty bodies are accepted for 204, 205 and HEAD.
	ErrUnableToDecodeData = errors.New("unable to decode data")
	// ErrUnknown is returned when the HTTP engine reports neither a
	// response nor an error.
	ErrUnknown = errors.New("unknown error")

	ErrNoAuthProvider    = errors.New("authentication required but no auth provider configured")
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	ErrPathInBatch       = errors.New("explicit destination path cannot be used in a batch download")
)

// UnexpectedStatusError is returned when the response status is rejected.
// Err is one of [ErrUnauthorized], [ErrServerError] or [ErrUnexpectedStatusCode].
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}
