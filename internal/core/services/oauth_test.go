package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
)

// mockStateStore implements driven.OAuthStateStore for testing
type mockStateStore struct {
	states  map[string]*driven.OAuthState
	saveErr error
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{states: make(map[string]*driven.OAuthState)}
}

func (m *mockStateStore) Save(ctx context.Context, state *driven.OAuthState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[state.State] = state
	return nil
}

func (m *mockStateStore) Get(ctx context.Context, state string) (*driven.OAuthState, error) {
	s, ok := m.states[state]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (m *mockStateStore) Delete(ctx context.Context, state string) error {
	delete(m.states, state)
	return nil
}

// mockCredentialStore implements driven.CredentialStore for testing
type mockCredentialStore struct {
	creds map[string]*domain.Credential
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{creds: make(map[string]*domain.Credential)}
}

func (m *mockCredentialStore) Get(ctx context.Context, userID string) (*domain.Credential, error) {
	cred, ok := m.creds[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *cred
	return &c, nil
}

func (m *mockCredentialStore) Upsert(ctx context.Context, userID, accessToken, refreshToken string) (*domain.Credential, error) {
	now := time.Now()
	cred, ok := m.creds[userID]
	if !ok {
		cred = &domain.Credential{UserID: userID, CreatedAt: now}
		m.creds[userID] = cred
	}
	cred.AccessToken = accessToken
	if refreshToken != "" {
		cred.RefreshToken = refreshToken
	}
	cred.UpdatedAt = now
	return cred, nil
}

func (m *mockCredentialStore) Delete(ctx context.Context, userID string) error {
	delete(m.creds, userID)
	return nil
}

// mockProvider implements driven.ProviderClient for testing
type mockProvider struct {
	exchangeFn func(ctx context.Context, code string) (*driven.TokenPair, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*driven.TokenPair, error)
	probeFn    func(ctx context.Context, accessToken string) error

	exchangeCalls int
	refreshCalls  int
}

func (m *mockProvider) BuildAuthURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code string) (*driven.TokenPair, error) {
	m.exchangeCalls++
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code)
	}
	return &driven.TokenPair{AccessToken: "tok1", RefreshToken: "ref1"}, nil
}

func (m *mockProvider) Refresh(ctx context.Context, refreshToken string) (*driven.TokenPair, error) {
	m.refreshCalls++
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return &driven.TokenPair{AccessToken: "tok2"}, nil
}

func (m *mockProvider) Probe(ctx context.Context, accessToken string) error {
	if m.probeFn != nil {
		return m.probeFn(ctx, accessToken)
	}
	return nil
}

func newTestOAuthService(states *mockStateStore, creds *mockCredentialStore, provider *mockProvider) *oauthService {
	return NewOAuthService(OAuthServiceConfig{
		StateStore:      states,
		CredentialStore: creds,
		Provider:        provider,
	}).(*oauthService)
}

func TestGenerateAuthURL(t *testing.T) {
	states := newMockStateStore()
	svc := newTestOAuthService(states, newMockCredentialStore(), &mockProvider{})

	url, err := svc.GenerateAuthURL(context.Background(), "42", "https://app/cb")
	if err != nil {
		t.Fatalf("GenerateAuthURL() error = %v", err)
	}
	if url == "" {
		t.Fatal("GenerateAuthURL() returned empty URL")
	}

	if len(states.states) != 1 {
		t.Fatalf("expected 1 stored state, got %d", len(states.states))
	}
	for state, stored := range states.states {
		if stored.UserID != "42" {
			t.Errorf("stored UserID = %s, want 42", stored.UserID)
		}
		if stored.CallbackURL != "https://app/cb" {
			t.Errorf("stored CallbackURL = %s, want https://app/cb", stored.CallbackURL)
		}
		if url != "https://accounts.example.com/o/oauth2/auth?state="+state {
			t.Errorf("auth URL %q does not carry the bare state %q", url, state)
		}
	}
}

func TestGenerateAuthURL_MissingIdentity(t *testing.T) {
	svc := newTestOAuthService(newMockStateStore(), newMockCredentialStore(), &mockProvider{})

	_, err := svc.GenerateAuthURL(context.Background(), "", "https://app/cb")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("GenerateAuthURL() error = %v, want ErrUnauthenticated", err)
	}
}

func TestGenerateAuthURL_StoreFailure(t *testing.T) {
	states := newMockStateStore()
	states.saveErr = errors.New("redis down")
	svc := newTestOAuthService(states, newMockCredentialStore(), &mockProvider{})

	_, err := svc.GenerateAuthURL(context.Background(), "42", "https://app/cb")
	if err == nil {
		t.Fatal("GenerateAuthURL() expected error when state store fails")
	}
}

func TestHandleCallback_FullFlow(t *testing.T) {
	states := newMockStateStore()
	creds := newMockCredentialStore()
	svc := newTestOAuthService(states, creds, &mockProvider{})

	_, err := svc.GenerateAuthURL(context.Background(), "42", "https://app/cb")
	if err != nil {
		t.Fatalf("GenerateAuthURL() error = %v", err)
	}

	var state string
	for s := range states.states {
		state = s
	}

	result, err := svc.HandleCallback(context.Background(), "xyz", state)
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if result.AccessToken != "tok1" {
		t.Errorf("AccessToken = %s, want tok1", result.AccessToken)
	}
	if result.CallbackURL != "https://app/cb" {
		t.Errorf("CallbackURL = %s, want https://app/cb", result.CallbackURL)
	}

	cred, err := creds.Get(context.Background(), "42")
	if err != nil {
		t.Fatalf("credential not stored: %v", err)
	}
	if cred.AccessToken != "tok1" || cred.RefreshToken != "ref1" {
		t.Errorf("stored tokens = (%s, %s), want (tok1, ref1)", cred.AccessToken, cred.RefreshToken)
	}

	if len(states.states) != 0 {
		t.Error("state was not consumed after successful callback")
	}
}

func TestHandleCallback_StateSingleUse(t *testing.T) {
	states := newMockStateStore()
	svc := newTestOAuthService(states, newMockCredentialStore(), &mockProvider{})

	_, _ = svc.GenerateAuthURL(context.Background(), "42", "https://app/cb")
	var state string
	for s := range states.states {
		state = s
	}

	if _, err := svc.HandleCallback(context.Background(), "xyz", state); err != nil {
		t.Fatalf("first HandleCallback() error = %v", err)
	}

	_, err := svc.HandleCallback(context.Background(), "xyz", state)
	if !errors.Is(err, domain.ErrInvalidOrExpiredState) {
		t.Errorf("second HandleCallback() error = %v, want ErrInvalidOrExpiredState", err)
	}
}

func TestHandleCallback_ExpiredState(t *testing.T) {
	states := newMockStateStore()
	creds := newMockCredentialStore()
	provider := &mockProvider{}
	svc := newTestOAuthService(states, creds, provider)

	states.states["abc123"] = &driven.OAuthState{
		State:       "abc123",
		UserID:      "42",
		CallbackURL: "https://app/cb",
		CreatedAt:   time.Now().Add(-10 * time.Minute),
		ExpiresAt:   time.Now().Add(-5 * time.Minute),
	}

	_, err := svc.HandleCallback(context.Background(), "xyz", "abc123")
	if !errors.Is(err, domain.ErrInvalidOrExpiredState) {
		t.Errorf("HandleCallback() error = %v, want ErrInvalidOrExpiredState", err)
	}
	if provider.exchangeCalls != 0 {
		t.Error("exchange must not be attempted with an expired state")
	}
}

func TestHandleCallback_ExchangeFailed(t *testing.T) {
	states := newMockStateStore()
	creds := newMockCredentialStore()
	provider := &mockProvider{
		exchangeFn: func(ctx context.Context, code string) (*driven.TokenPair, error) {
			return nil, domain.ErrAuthenticationFailed
		},
	}
	svc := newTestOAuthService(states, creds, provider)

	_, _ = svc.GenerateAuthURL(context.Background(), "42", "https://app/cb")
	var state string
	for s := range states.states {
		state = s
	}

	_, err := svc.HandleCallback(context.Background(), "bad-code", state)
	if !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Errorf("HandleCallback() error = %v, want ErrAuthenticationFailed", err)
	}
	if len(creds.creds) != 0 {
		t.Error("no credential may be stored after a failed exchange")
	}
	if len(states.states) != 1 {
		t.Error("state must survive a failed exchange so the flow can be retried")
	}
}

func TestCheckStatus_NoCredential(t *testing.T) {
	svc := newTestOAuthService(newMockStateStore(), newMockCredentialStore(), &mockProvider{})

	connected, err := svc.CheckStatus(context.Background(), "42")
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if connected {
		t.Error("CheckStatus() = true for user with no credential")
	}
}

func TestCheckStatus_ValidToken(t *testing.T) {
	creds := newMockCredentialStore()
	_, _ = creds.Upsert(context.Background(), "42", "tok1", "ref1")
	svc := newTestOAuthService(newMockStateStore(), creds, &mockProvider{})

	connected, err := svc.CheckStatus(context.Background(), "42")
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if !connected {
		t.Error("CheckStatus() = false for valid token")
	}
}

func TestValidateAndRefresh_PreservesRefreshToken(t *testing.T) {
	creds := newMockCredentialStore()
	_, _ = creds.Upsert(context.Background(), "42", "expired", "ref1")

	provider := &mockProvider{
		probeFn: func(ctx context.Context, accessToken string) error {
			if accessToken == "expired" {
				return domain.ErrTokenInvalid
			}
			return nil
		},
		// Refresh returns a new access token and no refresh token,
		// mirroring the provider's usual refresh response.
		refreshFn: func(ctx context.Context, refreshToken string) (*driven.TokenPair, error) {
			return &driven.TokenPair{AccessToken: "tok2"}, nil
		},
	}
	svc := newTestOAuthService(newMockStateStore(), creds, provider)

	token, err := svc.GetValidToken(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if token != "tok2" {
		t.Errorf("GetValidToken() = %s, want tok2", token)
	}

	cred, _ := creds.Get(context.Background(), "42")
	if cred.AccessToken != "tok2" {
		t.Errorf("stored access token = %s, want tok2", cred.AccessToken)
	}
	if cred.RefreshToken != "ref1" {
		t.Errorf("stored refresh token = %s, want ref1 (must be preserved)", cred.RefreshToken)
	}
	if provider.refreshCalls != 1 {
		t.Errorf("refresh called %d times, want exactly 1", provider.refreshCalls)
	}
}

func TestValidateAndRefresh_RevocationClearsCredential(t *testing.T) {
	creds := newMockCredentialStore()
	_, _ = creds.Upsert(context.Background(), "42", "expired", "revoked")

	provider := &mockProvider{
		probeFn: func(ctx context.Context, accessToken string) error {
			return domain.ErrTokenInvalid
		},
		refreshFn: func(ctx context.Context, refreshToken string) (*driven.TokenPair, error) {
			return nil, domain.ErrRefreshFailed
		},
	}
	svc := newTestOAuthService(newMockStateStore(), creds, provider)

	_, err := svc.GetValidToken(context.Background(), "42")
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("GetValidToken() error = %v, want ErrNotConnected", err)
	}

	if _, err := creds.Get(context.Background(), "42"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("credential must be deleted after refresh rejection")
	}

	connected, err := svc.CheckStatus(context.Background(), "42")
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if connected {
		t.Error("CheckStatus() = true after refresh rejection")
	}
}

func TestValidateAndRefresh_UpstreamErrorKeepsCredential(t *testing.T) {
	creds := newMockCredentialStore()
	_, _ = creds.Upsert(context.Background(), "42", "tok1", "ref1")

	provider := &mockProvider{
		probeFn: func(ctx context.Context, accessToken string) error {
			return &domain.UpstreamError{Status: 503}
		},
	}
	svc := newTestOAuthService(newMockStateStore(), creds, provider)

	_, err := svc.GetValidToken(context.Background(), "42")
	if !domain.IsUpstreamError(err) {
		t.Errorf("GetValidToken() error = %v, want UpstreamError", err)
	}
	if provider.refreshCalls != 0 {
		t.Error("a provider outage must not trigger a refresh attempt")
	}

	cred, err := creds.Get(context.Background(), "42")
	if err != nil {
		t.Fatal("credential must survive a transient upstream error")
	}
	if cred.RefreshToken != "ref1" {
		t.Error("credential mutated during upstream error")
	}
}

func TestValidateAndRefresh_NoRefreshTokenForcesReauth(t *testing.T) {
	creds := newMockCredentialStore()
	_, _ = creds.Upsert(context.Background(), "42", "expired", "")

	provider := &mockProvider{
		probeFn: func(ctx context.Context, accessToken string) error {
			return domain.ErrTokenInvalid
		},
	}
	svc := newTestOAuthService(newMockStateStore(), creds, provider)

	_, err := svc.GetValidToken(context.Background(), "42")
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("GetValidToken() error = %v, want ErrNotConnected", err)
	}
	if provider.refreshCalls != 0 {
		t.Error("refresh must not be attempted without a refresh token")
	}
	if _, err := creds.Get(context.Background(), "42"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("unusable credential must be deleted")
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	creds := newMockCredentialStore()
	_, _ = creds.Upsert(context.Background(), "42", "tok1", "ref1")
	svc := newTestOAuthService(newMockStateStore(), creds, &mockProvider{})

	msg, err := svc.Disconnect(context.Background(), "42")
	if err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if msg == "" {
		t.Error("Disconnect() returned empty message")
	}

	// Second disconnect with nothing left to delete.
	msg, err = svc.Disconnect(context.Background(), "42")
	if err != nil {
		t.Fatalf("second Disconnect() error = %v", err)
	}
	if msg == "" {
		t.Error("second Disconnect() returned empty message")
	}

	if len(creds.creds) != 0 {
		t.Error("credential remains after disconnect")
	}
}

func TestGenerateStateToken(t *testing.T) {
	s1, err := generateStateToken()
	if err != nil {
		t.Fatalf("generateStateToken() error = %v", err)
	}
	s2, err := generateStateToken()
	if err != nil {
		t.Fatalf("generateStateToken() error = %v", err)
	}

	if s1 == s2 {
		t.Error("generateStateToken() produced duplicate values")
	}
	if len(s1) != 32 {
		t.Errorf("generateStateToken() length = %d, want 32", len(s1))
	}
}
