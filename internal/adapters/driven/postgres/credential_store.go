package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements driven.CredentialStore using PostgreSQL.
// Tokens are encrypted before they reach the database and decrypted on read.
type CredentialStore struct {
	db     *DB
	cipher *TokenCipher
}

// NewCredentialStore creates a new PostgreSQL-backed credential store.
func NewCredentialStore(db *DB, cipher *TokenCipher) *CredentialStore {
	return &CredentialStore{db: db, cipher: cipher}
}

// Get retrieves a user's credential.
func (s *CredentialStore) Get(ctx context.Context, userID string) (*domain.Credential, error) {
	query := `
		SELECT user_id, access_token, refresh_token, created_at, updated_at
		FROM credentials
		WHERE user_id = $1
	`

	var cred domain.Credential
	var accessBlob []byte
	var refreshBlob []byte

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&cred.UserID,
		&accessBlob,
		&refreshBlob,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred.AccessToken, err = s.cipher.Decrypt(accessBlob)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}

	if refreshBlob != nil {
		cred.RefreshToken, err = s.cipher.Decrypt(refreshBlob)
		if err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}

	return &cred, nil
}

// Upsert creates or updates a user's credential. An empty refreshToken maps
// to NULL, and the COALESCE in the conflict clause keeps whatever refresh
// token was stored before.
func (s *CredentialStore) Upsert(ctx context.Context, userID, accessToken, refreshToken string) (*domain.Credential, error) {
	accessBlob, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	var refreshBlob []byte
	if refreshToken != "" {
		refreshBlob, err = s.cipher.Encrypt(refreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	query := `
		INSERT INTO credentials (user_id, access_token, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, credentials.refresh_token),
			updated_at = NOW()
		RETURNING user_id, created_at, updated_at
	`

	var cred domain.Credential
	err = s.db.QueryRowContext(ctx, query, userID, accessBlob, refreshBlob).Scan(
		&cred.UserID,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert credential: %w", err)
	}

	cred.AccessToken = accessToken
	cred.RefreshToken = refreshToken
	if cred.RefreshToken == "" {
		// Reflect what actually survived the upsert.
		existing, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		cred.RefreshToken = existing.RefreshToken
	}

	return &cred, nil
}

// Delete removes a user's credential. Deleting an absent row is not an error.
func (s *CredentialStore) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM credentials WHERE user_id = $1`

	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	return nil
}
