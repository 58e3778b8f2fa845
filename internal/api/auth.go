package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirage-net/mirage/internal/errors"
)

// HeaderAPIKey is the request header carrying the shared secret.
const HeaderAPIKey = "X-API-Key"

// NewAPIKeyMiddleware returns a huma middleware rejecting requests whose X-API-Key header does not match apiKey.
// The check runs before any operation handler. An empty apiKey rejects every request.
func NewAPIKeyMiddleware(router huma.API, apiKey string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !ValidAPIKey(ctx.Header(HeaderAPIKey), apiKey) {
			_ = huma.WriteErr(router, ctx, http.StatusUnauthorized, errors.ErrUnauthorized.Error())
			return
		}
		next(ctx)
	}
}

// ValidAPIKey reports whether the supplied key matches the expected one, in constant time.
func ValidAPIKey(supplied string, expected string) bool {
	if supplied == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) == 1
}
