package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// DefaultStateTTL is how long an authorization attempt stays valid.
const DefaultStateTTL = 5 * time.Minute

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// StateStore manages OAuth flow state.
	StateStore driven.OAuthStateStore

	// CredentialStore persists per-user tokens.
	CredentialStore driven.CredentialStore

	// Provider wraps the outbound OAuth calls.
	Provider driven.ProviderClient

	// StateTTL overrides DefaultStateTTL when positive.
	StateTTL time.Duration

	// Logger receives flow diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	stateStore      driven.OAuthStateStore
	credentialStore driven.CredentialStore
	provider        driven.ProviderClient
	stateTTL        time.Duration
	logger          *slog.Logger
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &oauthService{
		stateStore:      cfg.StateStore,
		credentialStore: cfg.CredentialStore,
		provider:        cfg.Provider,
		stateTTL:        ttl,
		logger:          logger,
	}
}

// GenerateAuthURL starts an authorization flow for the user.
// The stored state bundles {state, user, callback URL}; only the bare state
// travels through the provider's redirect, so the bundle cannot be tampered
// with in transit.
func (s *oauthService) GenerateAuthURL(ctx context.Context, userID, callbackURL string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}
	if callbackURL == "" {
		return "", fmt.Errorf("%w: callback_url is required", domain.ErrInvalidInput)
	}

	// State doubles as a CSRF token: it must be unguessable.
	state, err := generateStateToken()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	now := time.Now()
	oauthState := &driven.OAuthState{
		State:       state,
		UserID:      userID,
		CallbackURL: callbackURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.stateTTL),
	}

	if err := s.stateStore.Save(ctx, oauthState); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}

	return s.provider.BuildAuthURL(state), nil
}

// HandleCallback completes the authorization flow.
// Ordering matters for crash safety: the state is looked up first, the
// credential is persisted, and only then is the state deleted. A crash
// mid-flow leaves either a retryable state or a fully stored credential,
// never a consumed code with nothing to show for it.
func (s *oauthService) HandleCallback(ctx context.Context, code, state string) (*driving.CallbackResult, error) {
	if code == "" || state == "" {
		return nil, fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}

	oauthState, err := s.stateStore.Get(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("get oauth state: %w", err)
	}
	if oauthState == nil {
		return nil, domain.ErrInvalidOrExpiredState
	}

	// Codes are single-use: never retried.
	tokens, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}

	if _, err := s.credentialStore.Upsert(ctx, oauthState.UserID, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	// Deletion enforces single use. A failure here is logged, not fatal:
	// the credential is already stored and the state still has a TTL.
	if err := s.stateStore.Delete(ctx, state); err != nil {
		s.logger.Warn("failed to delete oauth state after exchange",
			"user_id", oauthState.UserID, "error", err)
	}

	return &driving.CallbackResult{
		AccessToken: tokens.AccessToken,
		CallbackURL: oauthState.CallbackURL,
	}, nil
}

// CheckStatus reports whether the user currently holds a working credential.
func (s *oauthService) CheckStatus(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, domain.ErrUnauthenticated
	}

	cred, err := s.credentialStore.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get credential: %w", err)
	}

	token, err := s.validateAndRefresh(ctx, cred)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// GetValidToken returns a currently valid access token for the user.
func (s *oauthService) GetValidToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}

	cred, err := s.credentialStore.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrNotConnected
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}

	token, err := s.validateAndRefresh(ctx, cred)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", domain.ErrNotConnected
	}
	return token, nil
}

// Disconnect deletes the user's credential.
func (s *oauthService) Disconnect(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}

	if err := s.credentialStore.Delete(ctx, userID); err != nil {
		return "", fmt.Errorf("delete credential: %w", err)
	}
	return "Drive account disconnected", nil
}

// validateAndRefresh is the shared freshness primitive. It probes the stored
// access token and, when the provider reports it unauthorized, performs
// exactly one refresh attempt. It returns "" with a nil error when the
// credential is gone for good (no refresh token, or the refresh token was
// rejected and the credential deleted). Upstream errors propagate unchanged
// and never touch the stored credential: a transient provider outage must not
// log the user out.
func (s *oauthService) validateAndRefresh(ctx context.Context, cred *domain.Credential) (string, error) {
	err := s.provider.Probe(ctx, cred.AccessToken)
	if err == nil {
		return cred.AccessToken, nil
	}
	if !errors.Is(err, domain.ErrTokenInvalid) {
		return "", fmt.Errorf("probe token: %w", err)
	}

	if !cred.CanRefresh() {
		// No refresh token was ever issued: re-auth is the only way back.
		if err := s.credentialStore.Delete(ctx, cred.UserID); err != nil {
			return "", fmt.Errorf("delete credential: %w", err)
		}
		return "", nil
	}

	tokens, err := s.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshFailed) {
			// Terminal: the refresh token is revoked or expired.
			if delErr := s.credentialStore.Delete(ctx, cred.UserID); delErr != nil {
				return "", fmt.Errorf("delete credential: %w", delErr)
			}
			s.logger.Info("credential cleared after refresh rejection", "user_id", cred.UserID)
			return "", nil
		}
		return "", fmt.Errorf("refresh token: %w", err)
	}

	// Upsert preserves the stored refresh token when the provider did not
	// return a new one.
	if _, err := s.credentialStore.Upsert(ctx, cred.UserID, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return "", fmt.Errorf("store refreshed credential: %w", err)
	}

	return tokens.AccessToken, nil
}

// generateStateToken generates a cryptographically random state string
// with 128 bits of entropy.
func generateStateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
