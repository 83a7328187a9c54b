package domain

import (
	"time"
)

type AuthType string

const (
	AuthTypeOAuth2 AuthType = "OAuth2"
)

type AccessType string

const (
	AccessTypePrivate AccessType = "private"
	AccessTypeShared  AccessType = "shared"
)

// NormalizeAccessType defaults unknown values to private, mirroring the
// defaulting the API layer applies to caller-supplied access types.
func NormalizeAccessType(s string) AccessType {
	if AccessType(s) == AccessTypeShared {
		return AccessTypeShared
	}
	return AccessTypePrivate
}

func (a AccessType) Valid() bool {
	return a == AccessTypePrivate || a == AccessTypeShared
}

// ProviderConfig is the per-integration, per-provider auth configuration.
// It is read-only to the engine; the Secret map never leaves the process.
type ProviderConfig struct {
	AuthType         AuthType          `bson:"authType" json:"auth_type"`
	AllowedHosts     []string          `bson:"allowedHosts" json:"allowed_hosts"`
	NonSecret        map[string]string `bson:"nonSecret" json:"non_secret"`
	Secret           map[string]string `bson:"secret" json:"-"`
	AuthGrantURL     string            `bson:"authGrantURL" json:"auth_grant_url"`
	TokenExchangeURL string            `bson:"tokenExchangeURL" json:"token_exchange_url"`
}

// PublicProviderConfig is the secret-free projection returned to modules.
type PublicProviderConfig struct {
	AuthType         AuthType          `json:"auth_type"`
	AllowedHosts     []string          `json:"allowed_hosts"`
	NonSecret        map[string]string `json:"non_secret"`
	AuthGrantURL     string            `json:"auth_grant_url"`
	TokenExchangeURL string            `json:"token_exchange_url"`
}

func (c ProviderConfig) Public() PublicProviderConfig {
	return PublicProviderConfig{
		AuthType:         c.AuthType,
		AllowedHosts:     c.AllowedHosts,
		NonSecret:        c.NonSecret,
		AuthGrantURL:     c.AuthGrantURL,
		TokenExchangeURL: c.TokenExchangeURL,
	}
}

// EncryptedToken holds an AEAD-sealed secret. Both fields are base64.
type EncryptedToken struct {
	Token string `bson:"token" json:"token"`
	Nonce string `bson:"nonce" json:"nonce"`
}

// ClosedCredential is the long-lived secret-bearing tier. It is persisted
// inside AccountAuth and never contains an access token; the refresh token
// is stored encrypted or not at all.
type ClosedCredential struct {
	Subject      string          `bson:"sub" json:"sub"`
	Issuer       string          `bson:"issuer" json:"issuer"`
	RefreshToken *EncryptedToken `bson:"refresh_token" json:"-"`
	TokenType    string          `bson:"token_type" json:"-"`
	Scope        string          `bson:"scope" json:"scope"`
	Profile      map[string]any  `bson:"profile" json:"profile"`
}

// ClosedCredentialPatch is a sparse update of ClosedCredential. Nil fields
// are left untouched by AccountStore.UpdateFields.
type ClosedCredentialPatch struct {
	RefreshToken *EncryptedToken
	Scope        *string
}

func (p ClosedCredentialPatch) IsZero() bool {
	return p.RefreshToken == nil && p.Scope == nil
}

// AccountAuth is one authorized account as persisted under the
// integration's namespace in the owner's document.
type AccountAuth struct {
	ID           string           `bson:"_id" json:"_id"`
	AuthorizedAt time.Time        `bson:"auth_on" json:"auth_on"`
	AuthType     AuthType         `bson:"auth_type" json:"auth_type"`
	ProviderName string           `bson:"auth_provider_name" json:"auth_provider_name"`
	Credentials  ClosedCredential `bson:"credentials" json:"credentials"`
}

// SessionCredential is the short-lived access tier, cached per login
// session and never persisted to durable storage.
type SessionCredential struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"exp"`
}

func (c SessionCredential) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.Unix()
}

// SessionAccountAuth is the full cache entry for one account: the session
// tier plus the request context the module needs to use it.
type SessionAccountAuth struct {
	AuthType     AuthType          `json:"auth_type"`
	AllowedHosts []string          `json:"allowed_hosts"`
	Credentials  SessionCredential `json:"credentials"`
}

// OpenCredential carries the provider-response fields that are safe to
// return to the caller. The secret tiers are stripped before it is built.
type OpenCredential map[string]any

// CredentialBundle is the result of a successful authorization-code
// exchange, partitioned into the three credential tiers.
type CredentialBundle struct {
	Closed  ClosedCredential
	Session SessionCredential
	Open    OpenCredential
}

// RefreshResult is the outcome of a refresh-token exchange: a complete new
// session tier plus only the closed-tier fields that actually changed.
type RefreshResult struct {
	Session     SessionCredential
	ClosedPatch ClosedCredentialPatch
	Open        OpenCredential
}

// PublicAccountView is the secret-free account listing entry.
type PublicAccountView struct {
	ID           string         `json:"_id"`
	AuthorizedAt int64          `json:"auth_on"` // unix ms
	AuthType     AuthType       `json:"auth_type"`
	ProviderName string         `json:"auth_provider_name"`
	Credentials  PublicSavedAuth `json:"credentials"`
}

// PublicSavedAuth is the subset of ClosedCredential exposed on listing.
type PublicSavedAuth struct {
	Profile map[string]any `json:"profile"`
	Scope   string         `json:"scope"`
	Subject string         `json:"sub"`
	Issuer  string         `json:"issuer"`
}

// RequestCredentials is what a module receives to make direct calls to an
// external API on behalf of an account.
type RequestCredentials struct {
	Credentials  SessionCredential `json:"credentials"`
	AllowedHosts []string          `json:"allowed_hosts"`
}
