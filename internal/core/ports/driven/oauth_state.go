package driven

import (
	"context"
	"time"
)

// OAuthState represents a pending OAuth authorization flow.
// The bare state string is the only thing that travels through the provider's
// redirect; the user and return URL it binds to stay server-side.
type OAuthState struct {
	// State is a cryptographically random string used for CSRF protection.
	State string

	// UserID is the caller who started the flow.
	UserID string

	// CallbackURL is the frontend URL to redirect to after the callback.
	CallbackURL string

	// CreatedAt is when the state was created.
	CreatedAt time.Time

	// ExpiresAt is when the state expires.
	ExpiresAt time.Time
}

// OAuthStateStore manages OAuth flow state for CSRF protection.
// States are single-use and expire after a short period. Store failures are
// surfaced to the caller unchanged: the auth flow cannot proceed without it.
type OAuthStateStore interface {
	// Save stores a new OAuth state until its ExpiresAt.
	Save(ctx context.Context, state *OAuthState) error

	// Get returns the state, or nil, nil when it doesn't exist or has
	// expired. It does not delete; the caller deletes after a successful
	// exchange so that a crash mid-flow leaves the state retryable.
	Get(ctx context.Context, state string) (*OAuthState, error)

	// Delete removes the state. Idempotent: deleting an absent state is
	// not an error.
	Delete(ctx context.Context, state string) error
}
