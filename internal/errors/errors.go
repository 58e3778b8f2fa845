// Package errors defines domain-level errors used throughout the application.
// These errors represent business logic failures and are mapped to appropriate HTTP status codes at the API boundary.
//
// NOTE: Important for developers
// When adding a new error here, you MUST consider how it should be handled when returned from API endpoints.
//
// Unmapped errors will default to HTTP 500 Internal Server Error.
//
// Don't forget to:
// 1. Add your error to MapError (internal/api/errors.go) and/or writeError (internal/forward/errors.go)
// 2. Add a test case to TestMapError (internal/api/errors_test.go)
// 3. Consider if the directory client status mapping (internal/client) needs updating
package errors

import (
	"errors"
)

var (
	// ErrBadRequest indicates that the client provided invalid input or made a malformed request.
	// This typically results from missing required registration or heartbeat fields.
	// Recommended to map to HTTP 400 Bad Request.
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates that the shared-secret API key was missing or did not match.
	// Requests failing authentication are never retried.
	// Recommended to map to HTTP 401 Unauthorized.
	ErrUnauthorized = errors.New("invalid API key")

	// ErrPeerNotFound indicates that the requested peer has no record in the directory.
	// This occurs on heartbeat for a peer that never registered, or whose record already expired.
	// Recommended to map to HTTP 404 Not Found.
	ErrPeerNotFound = errors.New("peer not found")

	// ErrRegistrationFailed indicates that a peer record could not be serialized or written to the store.
	// Recommended to map to HTTP 500 Internal Server Error.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrBackendUnavailable indicates that the key-value store or the directory service could not be reached.
	// The gateway's health refresher retries this with backoff; the request path never does.
	// Recommended to map to HTTP 503 Service Unavailable.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrHealthNotTracked indicates that the gateway holds no health record for the specified peer.
	// Recommended to map to HTTP 404 Not Found.
	ErrHealthNotTracked = errors.New("peer health is not being tracked")

	// ErrNoPeerAvailable indicates that peer selection produced an empty candidate set.
	// The gateway does not fall back to a direct connection.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrNoPeerAvailable = errors.New("no peers available")

	// ErrUpstreamTimeout indicates that a request forwarded through a peer exceeded its time budget.
	// Recommended to map to HTTP 504 Gateway Timeout.
	ErrUpstreamTimeout = errors.New("gateway timeout")

	// ErrUpstreamFailure indicates that connecting or forwarding through the selected peer failed.
	// The request is not retried against a different peer.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrUpstreamFailure = errors.New("proxy error")

	// ErrRateLimited indicates that the gateway's inbound request budget is exhausted.
	// Recommended to map to HTTP 429 Too Many Requests.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Retryable reports whether an operation that failed with err may succeed if repeated.
// Authentication and validation failures never do.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrBadRequest)
}
