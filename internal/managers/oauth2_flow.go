package managers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"

	// defaultTokenLifetime applies when the provider omits expires_in.
	defaultTokenLifetime = 3600 * time.Second
)

// idProfileFields are the id_token claims copied into the stored profile.
var idProfileFields = []string{"email", "name", "given_name", "family_name", "picture"}

// sensitiveResponseFields are stripped from the open credential tier.
var sensitiveResponseFields = []string{"access_token", "refresh_token", "token_type"}

type OAuth2FlowDependencies struct {
	HTTPClient   *http.Client
	Cipher       domain.TokenCipher
	TokenDecoder domain.IdentityTokenVerifier
	RedirectURL  string
}

// OAuth2Flow executes the authorization-code and refresh-token grants
// against a provider's token endpoint and partitions the response into the
// closed, session and open credential tiers.
type OAuth2Flow struct {
	client       *http.Client
	cipher       domain.TokenCipher
	tokenDecoder domain.IdentityTokenVerifier
	redirectURL  string
	now          func() time.Time
}

func NewOAuth2Flow(deps OAuth2FlowDependencies) *OAuth2Flow {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &OAuth2Flow{
		client:       client,
		cipher:       deps.Cipher,
		tokenDecoder: deps.TokenDecoder,
		redirectURL:  deps.RedirectURL,
		now:          time.Now,
	}
}

// ExchangeAuthorizationCode trades a single-use auth code for tokens and
// splits them into the three credential tiers.
func (f *OAuth2Flow) ExchangeAuthorizationCode(ctx context.Context, cfg domain.ProviderConfig, authCode string) (domain.CredentialBundle, error) {
	if cfg.AuthType != domain.AuthTypeOAuth2 {
		return domain.CredentialBundle{}, domain.ErrUnsupportedAuthType
	}

	payload := url.Values{}
	payload.Set("client_id", cfg.NonSecret["client_id"])
	payload.Set("scope", cfg.NonSecret["scope"])
	payload.Set("code", authCode)
	payload.Set("grant_type", grantTypeAuthorizationCode)
	payload.Set("redirect_uri", f.redirectURL)
	payload.Set("client_secret", cfg.Secret["client_secret"])

	tokenResponse, err := f.exchangeToken(ctx, cfg, payload)
	if err != nil {
		return domain.CredentialBundle{}, err
	}

	// Decode the id_token payload into the response map and drop the raw
	// token; only allow-listed claims survive into the stored profile.
	idTokenPayload := map[string]any{}
	if idToken, ok := tokenResponse["id_token"].(string); ok && idToken != "" {
		idTokenPayload, err = f.tokenDecoder.DecodeClaims(idToken)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to decode id_token, continuing without profile claims")
			idTokenPayload = map[string]any{}
		}
	}
	delete(tokenResponse, "id_token")

	closed := f.buildClosedCredential(tokenResponse, idTokenPayload)
	session := f.buildSessionCredential(tokenResponse)

	open := domain.OpenCredential{}
	for key, value := range tokenResponse {
		open[key] = value
	}
	for _, field := range sensitiveResponseFields {
		delete(open, field)
	}

	return domain.CredentialBundle{
		Closed:  closed,
		Session: session,
		Open:    open,
	}, nil
}

// Refresh performs the refresh-token grant and returns a new session tier
// plus only the closed-tier fields that changed. On any failure the stored
// closed credential is left untouched by the caller.
func (f *OAuth2Flow) Refresh(ctx context.Context, cfg domain.ProviderConfig, closed domain.ClosedCredential) (domain.RefreshResult, error) {
	if cfg.AuthType != domain.AuthTypeOAuth2 {
		return domain.RefreshResult{}, domain.ErrUnsupportedAuthType
	}

	if closed.RefreshToken == nil {
		return domain.RefreshResult{}, domain.ErrNoRefreshToken
	}

	currentRefreshToken, err := f.cipher.Decrypt(*closed.RefreshToken)
	if err != nil {
		return domain.RefreshResult{}, err
	}

	payload := url.Values{}
	payload.Set("client_id", cfg.NonSecret["client_id"])
	payload.Set("client_secret", cfg.Secret["client_secret"])
	payload.Set("refresh_token", currentRefreshToken)
	payload.Set("grant_type", grantTypeRefreshToken)

	tokenResponse, err := f.exchangeToken(ctx, cfg, payload)
	if err != nil {
		return domain.RefreshResult{}, err
	}

	result := domain.RefreshResult{
		Session: f.buildSessionCredential(tokenResponse),
		Open:    domain.OpenCredential{},
	}

	// Rotation is detected by value inequality, not a provider flag.
	if newRefreshToken, ok := tokenResponse["refresh_token"].(string); ok && newRefreshToken != "" && newRefreshToken != currentRefreshToken {
		encrypted, err := f.cipher.Encrypt(newRefreshToken)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encrypt rotated refresh token, keeping previous token")
		} else {
			result.ClosedPatch.RefreshToken = &encrypted
		}
	}

	if newScope, ok := tokenResponse["scope"].(string); ok && newScope != "" && newScope != closed.Scope {
		result.ClosedPatch.Scope = &newScope
		result.Open["scope"] = newScope
	}

	return result, nil
}

func (f *OAuth2Flow) exchangeToken(ctx context.Context, cfg domain.ProviderConfig, payload url.Values) (map[string]any, error) {
	tokenURL := cfg.TokenExchangeURL

	if !IsAllowedHost(tokenURL, cfg.AllowedHosts) {
		log.Warn().Str("token_exchange_url", tokenURL).Msg("Token exchange URL rejected by host allow-list")
		return nil, domain.ErrHostNotAllowed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			Body:       decodeErrorBody(resp.Header.Get("Content-Type"), body),
		}
	}

	tokenResponse := map[string]any{}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	return tokenResponse, nil
}

func (f *OAuth2Flow) buildClosedCredential(tokenResponse, idTokenPayload map[string]any) domain.ClosedCredential {
	closed := domain.ClosedCredential{
		Subject:   stringField(idTokenPayload, "sub"),
		Issuer:    stringField(idTokenPayload, "iss"),
		TokenType: stringField(tokenResponse, "token_type"),
		Scope:     stringField(tokenResponse, "scope"),
		Profile:   map[string]any{},
	}

	for _, fieldName := range idProfileFields {
		if value, ok := idTokenPayload[fieldName]; ok && value != nil {
			closed.Profile[fieldName] = value
		}
	}

	// Only the encrypted refresh token is ever stored. On encryption
	// failure the field stays nil so no plaintext can reach the database.
	if refreshToken := stringField(tokenResponse, "refresh_token"); refreshToken != "" {
		encrypted, err := f.cipher.Encrypt(refreshToken)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encrypt refresh token, storing account without one")
		} else {
			closed.RefreshToken = &encrypted
		}
	}

	return closed
}

func (f *OAuth2Flow) buildSessionCredential(tokenResponse map[string]any) domain.SessionCredential {
	lifetime := defaultTokenLifetime
	if expiresIn, ok := numericField(tokenResponse, "expires_in"); ok {
		lifetime = time.Duration(expiresIn) * time.Second
	}

	return domain.SessionCredential{
		TokenType:   stringField(tokenResponse, "token_type"),
		AccessToken: stringField(tokenResponse, "access_token"),
		ExpiresAt:   f.now().Add(lifetime).Unix(),
	}
}

func stringField(m map[string]any, key string) string {
	if value, ok := m[key].(string); ok {
		return value
	}
	return ""
}

func numericField(m map[string]any, key string) (int64, bool) {
	switch value := m[key].(type) {
	case float64:
		return int64(value), true
	case json.Number:
		n, err := value.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func decodeErrorBody(contentType string, body []byte) any {
	if strings.HasPrefix(contentType, "application/json") {
		decoded := map[string]any{}
		if err := json.Unmarshal(body, &decoded); err == nil {
			return decoded
		}
	}
	return string(body)
}
