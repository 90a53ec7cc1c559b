package driving

import "context"

// OAuthService manages the provider token lifecycle for each user: starting
// the authorization flow, completing the callback, and keeping stored access
// tokens fresh.
type OAuthService interface {
	// GenerateAuthURL starts an authorization flow for the user. It mints
	// a single-use state bound to the user and callback URL, stores it
	// with a short TTL, and returns the provider's authorization URL
	// carrying only the bare state.
	GenerateAuthURL(ctx context.Context, userID, callbackURL string) (string, error)

	// HandleCallback completes the flow: validates the state, exchanges
	// the code, persists the tokens, and consumes the state. Returns the
	// access token and the callback URL the flow was started with.
	// An unknown or expired state yields domain.ErrInvalidOrExpiredState;
	// callers should send the user back into the auth flow, not show a
	// raw error.
	HandleCallback(ctx context.Context, code, state string) (*CallbackResult, error)

	// CheckStatus reports whether the user holds a credential that
	// currently yields a valid access token (refreshing if needed).
	CheckStatus(ctx context.Context, userID string) (bool, error)

	// GetValidToken returns a currently valid access token for the user,
	// refreshing transparently when the stored one has expired. Yields
	// domain.ErrNotConnected when no valid token can be produced.
	GetValidToken(ctx context.Context, userID string) (string, error)

	// Disconnect deletes the user's credential. Idempotent; returns a
	// confirmation message whether or not a credential existed.
	Disconnect(ctx context.Context, userID string) (string, error)
}

// CallbackResult is the outcome of a successful OAuth callback.
type CallbackResult struct {
	// AccessToken is the freshly exchanged access token.
	AccessToken string `json:"token"`

	// CallbackURL is where the browser should be redirected.
	CallbackURL string `json:"-"`
}
