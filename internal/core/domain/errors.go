package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated indicates the request carried no caller identity
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidOrExpiredState indicates the OAuth state token is unknown,
	// already used, or past its TTL. Callers must restart the auth flow.
	ErrInvalidOrExpiredState = errors.New("invalid or expired authentication state")

	// ErrAuthenticationFailed indicates the provider rejected the
	// authorization code during exchange. Restart the auth flow.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRefreshFailed indicates the provider rejected the refresh token.
	// This is terminal: the stored credential is useless and gets deleted.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrNotConnected indicates no valid credential exists for the user
	ErrNotConnected = errors.New("not connected")

	// ErrTokenInvalid indicates the provider rejected an access token as
	// unauthorized (expired or revoked)
	ErrTokenInvalid = errors.New("token invalid")
)

// UpstreamError indicates a transient provider-side failure (network error or
// an unexpected HTTP status). Distinct from an auth failure: it must never
// cause stored credentials to be cleared.
type UpstreamError struct {
	// Status is the HTTP status returned by the provider, or 0 when the
	// request never completed.
	Status int
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return "upstream provider unavailable"
	}
	return fmt.Sprintf("upstream provider error: status %d", e.Status)
}

// IsUpstreamError reports whether err is (or wraps) an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
