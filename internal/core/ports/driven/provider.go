package driven

import "context"

// TokenPair is the result of a code exchange or refresh. RefreshToken may be
// empty: providers only issue one on the first consented authorization, and
// refresh responses usually omit it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ProviderClient wraps the outbound OAuth and probe calls to the storage
// provider. Implementations translate provider responses into the domain
// error taxonomy and never retry on their own.
type ProviderClient interface {
	// BuildAuthURL constructs the provider's authorization URL carrying the
	// bare state. It always requests offline access and forces the consent
	// screen so a refresh token is issued on every first authorization.
	BuildAuthURL(state string) string

	// ExchangeCode exchanges an authorization code for tokens. Any
	// non-success response yields domain.ErrAuthenticationFailed; codes are
	// single-use, so the exchange is never retried.
	ExchangeCode(ctx context.Context, code string) (*TokenPair, error)

	// Refresh mints a new access token from a refresh token. A rejection
	// by the provider (revoked or expired refresh token) yields
	// domain.ErrRefreshFailed and is terminal; transient failures yield a
	// *domain.UpstreamError instead.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Probe makes a lightweight call that tests token validity. It returns
	// nil when the token is accepted, domain.ErrTokenInvalid when the
	// provider rejects it as unauthorized, and *domain.UpstreamError for
	// any other outcome. The three cases must stay distinct: conflating
	// them either forces spurious re-logins on provider outages or treats
	// real revocations as transient.
	Probe(ctx context.Context, accessToken string) error
}
