package driven

import (
	"context"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
)

// CredentialStore persists provider tokens, one record per user.
type CredentialStore interface {
	// Get returns the user's credential, or domain.ErrNotFound.
	Get(ctx context.Context, userID string) (*domain.Credential, error)

	// Upsert creates or updates the user's credential. The refresh token
	// is only overwritten when refreshToken is non-empty: a server-side
	// refresh may not return a new one, and the existing token must
	// survive in that case.
	Upsert(ctx context.Context, userID, accessToken, refreshToken string) (*domain.Credential, error)

	// Delete removes the user's credential. Idempotent.
	Delete(ctx context.Context, userID string) error
}
