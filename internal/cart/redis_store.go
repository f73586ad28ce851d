package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyValueStore is the subset of pkg/redis.Client the store needs.
type keyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(sessionID string) string
}

// RedisStore keeps one JSON document per session with a sliding TTL.
type RedisStore struct {
	kv  keyValueStore
	ttl time.Duration
}

// NewRedisStore builds a Redis-backed Persister.
func NewRedisStore(kv keyValueStore, ttl time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &RedisStore{kv: kv, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*State, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", sessionID, err)
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", state.SessionID, err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(state.SessionID), payload, s.ttl); err != nil {
		return fmt.Errorf("save cart %s: %w", state.SessionID, err)
	}
	return nil
}

// MarkSynced flags the stored document as mirrored when its version still
// matches. A newer local mutation leaves the flag unset.
func (s *RedisStore) MarkSynced(ctx context.Context, sessionID string, version int64) error {
	state, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if state == nil || state.Version != version || state.ServerSynced {
		return nil
	}
	state.ServerSynced = true
	return s.Save(ctx, *state)
}
