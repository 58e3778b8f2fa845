package api

// ErrorType represents the classification of errors returned via HTTP headers.
type ErrorType string

// HeaderErrorType is the HTTP header key which should be used to convey API error types.
const HeaderErrorType = "Mirage-Error-Type"

const (
	// NoPeerAvailable indicates that no tracked peer passed the selection filters.
	NoPeerAvailable ErrorType = "no-peer-available"

	// UpstreamTimeout indicates that the request forwarded through a peer ran out of time.
	UpstreamTimeout ErrorType = "upstream-timeout"

	// UpstreamFailure indicates that connecting or relaying through the selected peer failed.
	UpstreamFailure ErrorType = "upstream-failure"

	// RateLimited indicates that the gateway rejected the request because its request budget is exhausted.
	RateLimited ErrorType = "rate-limited"
)
