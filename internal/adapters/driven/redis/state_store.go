package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.OAuthStateStore = (*StateStore)(nil)

// statePrefix namespaces OAuth state keys in Redis
const statePrefix = "oauth_state:"

// StateStore implements driven.OAuthStateStore using Redis.
// Expiry rides on the Redis TTL, so no cleanup job is needed.
type StateStore struct {
	client *redis.Client
}

// NewStateStore creates a new Redis-backed StateStore
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// Save stores a state bundle with TTL derived from ExpiresAt
func (s *StateStore) Save(ctx context.Context, state *driven.OAuthState) error {
	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		// Already expired, don't save
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth state: %w", err)
	}

	if err := s.client.Set(ctx, statePrefix+state.State, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Get retrieves a state bundle. Expired keys evaporate via TTL, so a miss
// covers both unknown and expired states.
func (s *StateStore) Get(ctx context.Context, state string) (*driven.OAuthState, error) {
	data, err := s.client.Get(ctx, statePrefix+state).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth state: %w", err)
	}

	var oauthState driven.OAuthState
	if err := json.Unmarshal(data, &oauthState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth state: %w", err)
	}
	return &oauthState, nil
}

// Delete removes a state bundle. Deleting an absent key is not an error.
func (s *StateStore) Delete(ctx context.Context, state string) error {
	if err := s.client.Del(ctx, statePrefix+state).Err(); err != nil {
		return fmt.Errorf("failed to delete oauth state: %w", err)
	}
	return nil
}
