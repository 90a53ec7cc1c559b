package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OAuthStateStore = (*StateStore)(nil)

// StateStore implements driven.OAuthStateStore using PostgreSQL. It is the
// fallback when Redis is not configured; expiry is enforced at read time and
// expired rows are swept by Cleanup.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new PostgreSQL-backed OAuth state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Save stores a new OAuth state.
func (s *StateStore) Save(ctx context.Context, state *driven.OAuthState) error {
	query := `
		INSERT INTO oauth_states (state, user_id, callback_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		state.State,
		state.UserID,
		state.CallbackURL,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}

	return nil
}

// Get retrieves a state if it exists and has not expired. Expired or missing
// states return nil, nil.
func (s *StateStore) Get(ctx context.Context, state string) (*driven.OAuthState, error) {
	query := `
		SELECT state, user_id, callback_url, created_at, expires_at
		FROM oauth_states
		WHERE state = $1 AND expires_at > NOW()
	`

	var st driven.OAuthState
	err := s.db.QueryRowContext(ctx, query, state).Scan(
		&st.State,
		&st.UserID,
		&st.CallbackURL,
		&st.CreatedAt,
		&st.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get oauth state: %w", err)
	}

	return &st, nil
}

// Delete removes a state. Deleting an absent state is not an error.
func (s *StateStore) Delete(ctx context.Context, state string) error {
	query := `DELETE FROM oauth_states WHERE state = $1`

	if _, err := s.db.ExecContext(ctx, query, state); err != nil {
		return fmt.Errorf("delete oauth state: %w", err)
	}

	return nil
}

// Cleanup removes expired states. Run periodically; Get already filters on
// expiry, so this only bounds table growth.
func (s *StateStore) Cleanup(ctx context.Context) error {
	query := `DELETE FROM oauth_states WHERE expires_at < NOW()`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("cleanup oauth states: %w", err)
	}

	return nil
}

// RunCleanup runs Cleanup on the given interval until the context is
// cancelled. Errors are reported through onError and do not stop the loop.
func (s *StateStore) RunCleanup(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Cleanup(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
