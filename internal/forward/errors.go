package forward

import (
	stdErrors "errors"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/api"
	"github.com/mirage-net/mirage/internal/errors"
)

// writeError maps a forwarding error to its HTTP status and writes a plain-text response.
// The Mirage-Error-Type header names the failure class.
func writeError(logger hclog.Logger, w http.ResponseWriter, err error) {
	status, errType := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Warn("Request not forwarded", "status", status, "error", err)
	}

	if errType != "" {
		w.Header().Set(api.HeaderErrorType, string(errType))
	}
	http.Error(w, err.Error(), status)
}

// classify returns the status code and error type for a forwarding error.
func classify(err error) (int, api.ErrorType) {
	switch {
	case stdErrors.Is(err, errors.ErrBadRequest):
		return http.StatusBadRequest, ""
	case stdErrors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests, api.RateLimited
	case stdErrors.Is(err, errors.ErrNoPeerAvailable):
		return http.StatusBadGateway, api.NoPeerAvailable
	case stdErrors.Is(err, errors.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, api.UpstreamTimeout
	case stdErrors.Is(err, errors.ErrUpstreamFailure):
		return http.StatusBadGateway, api.UpstreamFailure
	default:
		return http.StatusInternalServerError, ""
	}
}
