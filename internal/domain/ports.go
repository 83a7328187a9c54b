package domain

import (
	"context"
)

// TokenCipher seals and opens opaque secret blobs with the process-wide
// key. Encrypt must generate a fresh nonce on every call.
type TokenCipher interface {
	Encrypt(plaintext string) (EncryptedToken, error)
	Decrypt(token EncryptedToken) (string, error)
}

// ProviderConfigStore resolves per-integration auth provider configs. It is
// read-only to the engine and owned by the configuration collaborator.
type ProviderConfigStore interface {
	GetProviderConfig(ctx context.Context, integrationID, providerName string) (ProviderConfig, error)
}

// AccountScope addresses one owner's account list for one integration.
type AccountScope struct {
	OwnerID       string
	IntegrationID string
	AccessType    AccessType
}

// AccountStore is the durable per-owner, per-integration collection of
// authorized accounts. Updates must be atomic per document and report the
// actual modified count.
type AccountStore interface {
	Count(ctx context.Context, scope AccountScope) (int, error)
	Append(ctx context.Context, scope AccountScope, account AccountAuth) error
	Find(ctx context.Context, scope AccountScope, accountID string) (AccountAuth, error)
	List(ctx context.Context, scope AccountScope) ([]AccountAuth, error)
	UpdateFields(ctx context.Context, scope AccountScope, accountID string, patch ClosedCredentialPatch) (bool, error)
	Remove(ctx context.Context, scope AccountScope, accountID string) (bool, error)
}

// SessionCredentialKey addresses one cached session tier entry.
type SessionCredentialKey struct {
	SessionID     string
	IntegrationID string
	AccountID     string
}

// SessionCredentialStore is the ephemeral per-login-session cache of
// session credentials. Get must report an expired entry as a miss.
type SessionCredentialStore interface {
	Get(ctx context.Context, key SessionCredentialKey) (SessionAccountAuth, error)
	Put(ctx context.Context, key SessionCredentialKey, auth SessionAccountAuth) error
	Remove(ctx context.Context, key SessionCredentialKey) error
}

// IdentityTokenVerifier decodes an OIDC id_token into its claims. The
// default implementation does not verify the signature; deployments can
// inject one that does without touching the flow logic.
type IdentityTokenVerifier interface {
	DecodeClaims(idToken string) (map[string]any, error)
}

// IDCodec reversibly encodes internal record ids for external display.
// Owned by a collaborator; the engine only decodes the module's own
// configuration id with it.
type IDCodec interface {
	Encode(id string) string
	Decode(encoded string) (string, error)
}
