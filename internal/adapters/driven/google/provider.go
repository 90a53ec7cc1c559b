package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ProviderClient = (*Provider)(nil)

// DriveScope grants full Drive access for the connected account.
const DriveScope = "https://www.googleapis.com/auth/drive"

// defaultProbeURL is a cheap authenticated endpoint used to test token
// validity without touching user data.
const defaultProbeURL = "https://www.googleapis.com/drive/v3/about?fields=user"

// Config holds the OAuth client registration for Google.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Provider implements driven.ProviderClient against Google's OAuth endpoints.
type Provider struct {
	oauth    *oauth2.Config
	http     *http.Client
	probeURL string
}

// Option customizes a Provider.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client used for token and probe calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.http = c }
}

// WithEndpoints overrides the token endpoint and probe URL. Used in tests to
// point the provider at a local server.
func WithEndpoints(authURL, tokenURL, probeURL string) Option {
	return func(p *Provider) {
		p.oauth.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
		p.probeURL = probeURL
	}
}

// NewProvider creates a Google OAuth provider client.
func NewProvider(cfg Config, opts ...Option) *Provider {
	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{DriveScope},
			Endpoint:     googleoauth.Endpoint,
		},
		http:     http.DefaultClient,
		probeURL: defaultProbeURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BuildAuthURL constructs the consent URL. Offline access plus forced consent
// makes Google issue a refresh token even for previously authorized users.
func (p *Provider) BuildAuthURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for tokens. Codes are single-use,
// so any failure here is terminal for the attempt.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*driven.TokenPair, error) {
	tok, err := p.oauth.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}

	return &driven.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}, nil
}

// Refresh mints a new access token. Google rejecting the refresh token means
// the grant is gone (revoked or expired) and re-authorization is required;
// anything else is an upstream failure the grant survives.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*driven.TokenPair, error) {
	src := p.oauth.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
				return nil, &domain.UpstreamError{Status: retrieveErr.Response.StatusCode}
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
		}
		return nil, &domain.UpstreamError{Status: 0}
	}

	return &driven.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}, nil
}

// Probe checks whether an access token is still accepted.
func (p *Provider) Probe(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.probeURL, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.http.Do(req)
	if err != nil {
		// Transport failure says nothing about the token.
		return &domain.UpstreamError{Status: 0}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrTokenInvalid
	default:
		return &domain.UpstreamError{Status: resp.StatusCode}
	}
}

// clientContext makes the oauth2 package use our HTTP client.
func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.http)
}
