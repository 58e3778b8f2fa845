package api

import (
	stdErrors "errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/errors"
)

// MapError maps application domain errors to appropriate HTTP status codes.
//
// This function is the central place where domain errors from internal/errors are converted to HTTP responses.
// When adding new errors to internal/errors/errors.go, you MUST add them here to prevent them from falling
// through to the default case which returns HTTP 500.
//
// Mapping guidelines:
//   - 400: Client errors (bad input, invalid requests)
//   - 401: Missing or mismatched API key
//   - 404: Resource not found errors
//   - 503: Key-value store or directory unavailable
//   - 500: Unexpected internal errors (default case)
func MapError(logger hclog.Logger, err error) huma.StatusError {
	switch {
	case stdErrors.Is(err, errors.ErrBadRequest):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrUnauthorized):
		return huma.Error401Unauthorized(err.Error())
	case stdErrors.Is(err, errors.ErrPeerNotFound):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrHealthNotTracked):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrRegistrationFailed):
		logger.Error("Peer registration failed", "error", err)
		return huma.Error500InternalServerError("Registration failed", err)
	case stdErrors.Is(err, errors.ErrBackendUnavailable):
		logger.Error("Backend unavailable", "error", err)
		return huma.Error503ServiceUnavailable("Peer store unavailable", err)
	default:
		logger.Error("Unexpected error handling directory request", "error", err)
		return huma.Error500InternalServerError("Internal server error", err)
	}
}

// ErrorHandler wraps error handling for the application when converting to API friendly errors.
// It allows the logger to be supplied to functions that resolve huma.StatusError,
// and it supports different behaviors based on the variadic errors parameter.
func ErrorHandler(logger hclog.Logger) func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
	return func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if len(errs) == 0 {
			// No errors provided; return a generic error.
			return huma.NewError(status, msg)
		}

		// Request validation failures from huma already carry the right status and details.
		for _, err := range errs {
			var detail huma.ErrorDetailer
			if stdErrors.As(err, &detail) {
				return huma.NewError(status, msg, errs...)
			}
		}

		if len(errs) == 1 {
			return MapError(logger, errs[0])
		}

		// Multiple errors; join them and map.
		return MapError(logger, stdErrors.Join(errs...))
	}
}
