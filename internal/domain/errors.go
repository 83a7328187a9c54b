package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderConfigNotFound means the integration config has no entry
	// for the requested auth provider. Not retryable without admin action.
	ErrProviderConfigNotFound = errors.New("auth provider config not found")

	// ErrUnsupportedAuthType means the configured authType is not one the
	// engine implements. All operations fail closed on it.
	ErrUnsupportedAuthType = errors.New("unsupported authorisation type")

	// ErrHostNotAllowed means a destination URL failed the allow-list
	// check. Never retried; logged as a security event.
	ErrHostNotAllowed = errors.New("host URL not allowed")

	// ErrNoRefreshToken means the stored closed credential has no usable
	// refresh token and the user must authorize again.
	ErrNoRefreshToken = errors.New("refresh token does not exist, please login again")

	// ErrCrypto covers key or AEAD failures. Fatal for the operation; the
	// caller must not persist partial secrets.
	ErrCrypto = errors.New("token crypto error")

	// ErrStorageWrite means the persistence layer did not acknowledge
	// exactly one modified document. Treated as a lost write.
	ErrStorageWrite = errors.New("storage write not acknowledged")

	// ErrAccountNotFound means no authorized account matches the id.
	ErrAccountNotFound = errors.New("account to use does not exist")

	// ErrMalformedResponse means the provider's token response could not
	// be decoded into the expected schema.
	ErrMalformedResponse = errors.New("malformed token response")

	// ErrSessionCredentialMiss is returned by the session store for both
	// absent and expired entries; callers treat the two identically.
	ErrSessionCredentialMiss = errors.New("session credential missing or expired")
)

// UpstreamError wraps a non-success HTTP response from the auth provider.
// The decoded body is kept for caller inspection; it is never logged raw.
type UpstreamError struct {
	StatusCode int
	Message    string
	Body       any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}

// TransportError wraps network-level failures (timeouts, refused
// connections). Safe for the caller to retry.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
