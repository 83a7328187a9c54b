package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "integration_auths"

type RedisSessionStoreDependencies struct {
	Client *redis.Client
	// TTL bounds a cache entry to the login session lifetime; Redis evicts
	// entries the engine never touches again.
	TTL time.Duration
}

// RedisSessionStore holds the short-lived session credential tier, keyed
// by (session, integration, account). Entries are never written to durable
// storage.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisSessionStore(deps RedisSessionStoreDependencies) *RedisSessionStore {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisSessionStore{
		client: deps.Client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached entry, reporting expired entries identically to
// absent ones. Stale entries are left for the next Put to overwrite.
func (s *RedisSessionStore) Get(ctx context.Context, key domain.SessionCredentialKey) (domain.SessionAccountAuth, error) {
	raw, err := s.client.Get(ctx, s.cacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.SessionAccountAuth{}, domain.ErrSessionCredentialMiss
		}
		return domain.SessionAccountAuth{}, fmt.Errorf("session store read failed: %w", err)
	}

	var auth domain.SessionAccountAuth
	if err := json.Unmarshal([]byte(raw), &auth); err != nil {
		return domain.SessionAccountAuth{}, fmt.Errorf("corrupt session credential entry: %w", err)
	}

	if auth.Credentials.Expired(s.now()) {
		return domain.SessionAccountAuth{}, domain.ErrSessionCredentialMiss
	}

	return auth, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, key domain.SessionCredentialKey, auth domain.SessionAccountAuth) error {
	raw, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to encode session credential: %w", err)
	}

	if err := s.client.Set(ctx, s.cacheKey(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store write failed: %w", err)
	}

	return nil
}

func (s *RedisSessionStore) Remove(ctx context.Context, key domain.SessionCredentialKey) error {
	if err := s.client.Del(ctx, s.cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("session store delete failed: %w", err)
	}

	return nil
}

func (s *RedisSessionStore) cacheKey(key domain.SessionCredentialKey) string {
	return sessionKeyPrefix + ":" + key.SessionID + ":" + key.IntegrationID + ":" + key.AccountID
}
