package storage

import (
	"context"
	"testing"
	"time"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSessionStore(RedisSessionStoreDependencies{
		Client: client,
		TTL:    ttl,
	}), mr
}

func sessionKey() domain.SessionCredentialKey {
	return domain.SessionCredentialKey{
		SessionID:     "session-1",
		IntegrationID: "integration-1",
		AccountID:     "acc-1",
	}
}

func sessionAuth(expiresAt int64) domain.SessionAccountAuth {
	return domain.SessionAccountAuth{
		AuthType:     domain.AuthTypeOAuth2,
		AllowedHosts: []string{"https://api.example.com"},
		Credentials: domain.SessionCredential{
			TokenType:   "Bearer",
			AccessToken: "access-1",
			ExpiresAt:   expiresAt,
		},
	}
}

func TestRedisSessionStore_PutGet(t *testing.T) {
	store, mr := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	auth := sessionAuth(time.Now().Add(30 * time.Minute).Unix())
	require.NoError(t, store.Put(ctx, sessionKey(), auth))

	got, err := store.Get(ctx, sessionKey())
	require.NoError(t, err)
	assert.Equal(t, auth, got)

	// One Redis entry per (session, integration, account).
	assert.True(t, mr.Exists("integration_auths:session-1:integration-1:acc-1"))
	assert.Equal(t, time.Hour, mr.TTL("integration_auths:session-1:integration-1:acc-1"))
}

func TestRedisSessionStore_MissOnAbsent(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)

	_, err := store.Get(context.Background(), sessionKey())
	assert.ErrorIs(t, err, domain.ErrSessionCredentialMiss)
}

func TestRedisSessionStore_ExpiredCredentialIsMiss(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	auth := sessionAuth(time.Now().Add(30 * time.Minute).Unix())
	require.NoError(t, store.Put(ctx, sessionKey(), auth))

	store.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err := store.Get(ctx, sessionKey())
	assert.ErrorIs(t, err, domain.ErrSessionCredentialMiss)
}

func TestRedisSessionStore_Remove(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sessionKey(), sessionAuth(time.Now().Add(time.Hour).Unix())))
	require.NoError(t, store.Remove(ctx, sessionKey()))

	_, err := store.Get(ctx, sessionKey())
	assert.ErrorIs(t, err, domain.ErrSessionCredentialMiss)

	// Removing an absent key is not an error.
	require.NoError(t, store.Remove(ctx, sessionKey()))
}

func TestRedisSessionStore_CorruptEntry(t *testing.T) {
	store, mr := newTestSessionStore(t, time.Hour)

	require.NoError(t, mr.Set("integration_auths:session-1:integration-1:acc-1", "not-json"))

	_, err := store.Get(context.Background(), sessionKey())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionCredentialMiss)
}

func TestRedisSessionStore_KeysAreScoped(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sessionKey(), sessionAuth(time.Now().Add(time.Hour).Unix())))

	otherSession := sessionKey()
	otherSession.SessionID = "session-2"

	_, err := store.Get(ctx, otherSession)
	assert.ErrorIs(t, err, domain.ErrSessionCredentialMiss)
}
