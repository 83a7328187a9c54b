package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAccessType(t *testing.T) {
	tests := []struct {
		in   string
		want AccessType
	}{
		{in: "private", want: AccessTypePrivate},
		{in: "shared", want: AccessTypeShared},
		{in: "", want: AccessTypePrivate},
		{in: "global", want: AccessTypePrivate},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAccessType(tt.in), "input %q", tt.in)
	}
}

func TestAccessTypeValid(t *testing.T) {
	assert.True(t, AccessTypePrivate.Valid())
	assert.True(t, AccessTypeShared.Valid())
	assert.False(t, AccessType("global").Valid())
	assert.False(t, AccessType("").Valid())
}

func TestSessionCredentialExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, SessionCredential{ExpiresAt: now.Add(time.Minute).Unix()}.Expired(now))
	assert.True(t, SessionCredential{ExpiresAt: now.Unix()}.Expired(now))
	assert.True(t, SessionCredential{ExpiresAt: now.Add(-time.Minute).Unix()}.Expired(now))
	assert.True(t, SessionCredential{}.Expired(now))
}

func TestProviderConfigPublicDropsSecret(t *testing.T) {
	cfg := ProviderConfig{
		AuthType:         AuthTypeOAuth2,
		AllowedHosts:     []string{"https://api.example.com"},
		NonSecret:        map[string]string{"client_id": "client-1"},
		Secret:           map[string]string{"client_secret": "s3cret"},
		AuthGrantURL:     "https://accounts.example.com/o/oauth2/auth",
		TokenExchangeURL: "https://accounts.example.com/o/oauth2/token",
	}

	raw, err := json.Marshal(cfg.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")
	assert.Contains(t, string(raw), "client-1")
}

func TestClosedCredentialJSONHidesSecrets(t *testing.T) {
	closed := ClosedCredential{
		Subject:      "user-42",
		RefreshToken: &EncryptedToken{Token: "sealed", Nonce: "nonce"},
		TokenType:    "Bearer",
		Scope:        "email",
		Profile:      map[string]any{"email": "dev@example.com"},
	}

	raw, err := json.Marshal(closed)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sealed")
	assert.NotContains(t, string(raw), "refresh_token")
	assert.NotContains(t, string(raw), "token_type")
	assert.Contains(t, string(raw), "user-42")
}

func TestClosedCredentialPatchIsZero(t *testing.T) {
	scope := "email"

	assert.True(t, ClosedCredentialPatch{}.IsZero())
	assert.False(t, ClosedCredentialPatch{Scope: &scope}.IsZero())
	assert.False(t, ClosedCredentialPatch{RefreshToken: &EncryptedToken{}}.IsZero())
}
