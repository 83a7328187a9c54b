package managers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultAccountLimit caps accounts per (owner, integration, access type).
const DefaultAccountLimit = 2

var providerNamePattern = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

type IntegrationAuthManagerDependencies struct {
	ProviderConfigs domain.ProviderConfigStore
	Accounts        domain.AccountStore
	Sessions        domain.SessionCredentialStore
	Flow            *OAuth2Flow
	Executor        *RequestExecutor
	AccountLimit    int
}

// IntegrationAuthManager composes the credential engine into the
// module-facing operations: add, list and delete accounts, and hand out
// fresh request credentials. All outcomes resolve to the status contract;
// nothing below this boundary reaches callers as a raw error.
type IntegrationAuthManager struct {
	providerConfigs domain.ProviderConfigStore
	accounts        domain.AccountStore
	sessions        domain.SessionCredentialStore
	flow            *OAuth2Flow
	executor        *RequestExecutor
	accountLimit    int

	// refreshGroup coalesces concurrent refreshes for the same account so
	// a rotated refresh token is exchanged exactly once.
	refreshGroup singleflight.Group
}

func NewIntegrationAuthManager(deps IntegrationAuthManagerDependencies) *IntegrationAuthManager {
	accountLimit := deps.AccountLimit
	if accountLimit <= 0 {
		accountLimit = DefaultAccountLimit
	}

	return &IntegrationAuthManager{
		providerConfigs: deps.ProviderConfigs,
		accounts:        deps.Accounts,
		sessions:        deps.Sessions,
		flow:            deps.Flow,
		executor:        deps.Executor,
		accountLimit:    accountLimit,
	}
}

type AddAccountParams struct {
	OwnerID       string
	IntegrationID string
	SessionID     string
	ProviderName  string
	AccessType    string
	AuthCode      string
}

// AddAccount enforces the account limit before any provider exchange, so a
// rejected request never consumes the single-use authorization code.
func (m *IntegrationAuthManager) AddAccount(ctx context.Context, p AddAccountParams) domain.AddAccountResult {
	providerName := SanitizeProviderName(p.ProviderName)
	if providerName == "" {
		return domain.AddAccountResult{Response: domain.NewResponse(domain.StatusFailed, "Required info not set.")}
	}

	if p.AuthCode == "" {
		return domain.AddAccountResult{Response: domain.NewResponse(domain.StatusFailed, "Undefined auth code")}
	}

	scope := domain.AccountScope{
		OwnerID:       p.OwnerID,
		IntegrationID: p.IntegrationID,
		AccessType:    domain.NormalizeAccessType(p.AccessType),
	}

	count, err := m.accounts.Count(ctx, scope)
	if err != nil {
		log.Error().Err(err).Str("integration_id", p.IntegrationID).Msg("Failed to count authorized accounts")
		return domain.AddAccountResult{Response: domain.NewResponse(domain.StatusFailed, "Failed to read existing accounts.")}
	}

	if count >= m.accountLimit {
		message := fmt.Sprintf("Reached maximum account limit (%d).", m.accountLimit)
		return domain.AddAccountResult{Response: domain.NewResponse(domain.StatusAccountLimit, message)}
	}

	cfg, err := m.providerConfigs.GetProviderConfig(ctx, p.IntegrationID, providerName)
	if err != nil {
		return domain.AddAccountResult{Response: providerConfigErrorResponse(err)}
	}

	bundle, err := m.flow.ExchangeAuthorizationCode(ctx, cfg, p.AuthCode)
	if err != nil {
		return domain.AddAccountResult{Response: exchangeErrorResponse(err)}
	}

	account := domain.AccountAuth{
		ID:           xid.New().String(),
		AuthorizedAt: time.Now().UTC(),
		AuthType:     cfg.AuthType,
		ProviderName: providerName,
		Credentials:  bundle.Closed,
	}

	if err := m.accounts.Append(ctx, scope, account); err != nil {
		// The auth code is already consumed; re-running the exchange would
		// fail, so report the distinct authorized-but-unsaved status.
		log.Error().Err(err).Str("integration_id", p.IntegrationID).Msg("Authorized account could not be persisted")
		return domain.AddAccountResult{Response: domain.NewResponse(domain.StatusUnsaved, "Authorised but failed to save, please retry.")}
	}

	sessionKey := domain.SessionCredentialKey{
		SessionID:     p.SessionID,
		IntegrationID: p.IntegrationID,
		AccountID:     account.ID,
	}
	sessionAuth := domain.SessionAccountAuth{
		AuthType:     cfg.AuthType,
		AllowedHosts: cfg.AllowedHosts,
		Credentials:  bundle.Session,
	}
	if err := m.sessions.Put(ctx, sessionKey, sessionAuth); err != nil {
		// Non-fatal: the next credential request faults the tier back in.
		log.Warn().Err(err).Str("account_id", account.ID).Msg("Failed to seed session credential cache")
	}

	return domain.AddAccountResult{
		Response:  domain.NewResponse(domain.StatusOK, ""),
		AccountID: account.ID,
		Open:      bundle.Open,
	}
}

type AccountListParams struct {
	OwnerID       string
	IntegrationID string
	AccessType    string
}

// ListAccounts returns the secret-free views of every authorized account.
func (m *IntegrationAuthManager) ListAccounts(ctx context.Context, p AccountListParams) domain.ListAccountsResult {
	scope := domain.AccountScope{
		OwnerID:       p.OwnerID,
		IntegrationID: p.IntegrationID,
		AccessType:    domain.NormalizeAccessType(p.AccessType),
	}

	accounts, err := m.accounts.List(ctx, scope)
	if err != nil {
		log.Error().Err(err).Str("integration_id", p.IntegrationID).Msg("Failed to list authorized accounts")
		return domain.ListAccountsResult{Response: domain.NewResponse(domain.StatusFailed, "Failed to fetch accounts.")}
	}

	views := make([]domain.PublicAccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, formatAccountForModule(account))
	}

	return domain.ListAccountsResult{
		Response: domain.NewResponse(domain.StatusOK, ""),
		Accounts: views,
	}
}

type RequestCredentialParams struct {
	OwnerID       string
	IntegrationID string
	SessionID     string
	AccountID     string
	AccessType    string
}

// GetRequestCredentials serves the cached session tier when it is still
// valid and otherwise refreshes it from the persisted closed tier.
// Concurrent refreshes for one account share a single token exchange.
func (m *IntegrationAuthManager) GetRequestCredentials(ctx context.Context, p RequestCredentialParams) domain.RequestCredentialsResult {
	key := domain.SessionCredentialKey{
		SessionID:     p.SessionID,
		IntegrationID: p.IntegrationID,
		AccountID:     p.AccountID,
	}

	if auth, err := m.sessions.Get(ctx, key); err == nil {
		return domain.RequestCredentialsResult{
			Response:     domain.NewResponse(domain.StatusOK, ""),
			Credentials:  &auth.Credentials,
			AllowedHosts: auth.AllowedHosts,
		}
	} else if !errors.Is(err, domain.ErrSessionCredentialMiss) {
		log.Warn().Err(err).Str("account_id", p.AccountID).Msg("Session credential cache read failed, refreshing")
	}

	flightKey := p.OwnerID + ":" + p.IntegrationID + ":" + p.AccountID
	fresh, err, _ := m.refreshGroup.Do(flightKey, func() (any, error) {
		return m.refreshRequestCredentials(ctx, p, key)
	})
	if err != nil {
		return domain.RequestCredentialsResult{Response: refreshErrorResponse(err)}
	}

	auth := fresh.(domain.SessionAccountAuth)

	return domain.RequestCredentialsResult{
		Response:     domain.NewResponse(domain.StatusOK, ""),
		Credentials:  &auth.Credentials,
		AllowedHosts: auth.AllowedHosts,
	}
}

func (m *IntegrationAuthManager) refreshRequestCredentials(ctx context.Context, p RequestCredentialParams, key domain.SessionCredentialKey) (domain.SessionAccountAuth, error) {
	scope := domain.AccountScope{
		OwnerID:       p.OwnerID,
		IntegrationID: p.IntegrationID,
		AccessType:    domain.NormalizeAccessType(p.AccessType),
	}

	account, err := m.accounts.Find(ctx, scope, p.AccountID)
	if err != nil {
		return domain.SessionAccountAuth{}, err
	}

	cfg, err := m.providerConfigs.GetProviderConfig(ctx, p.IntegrationID, account.ProviderName)
	if err != nil {
		return domain.SessionAccountAuth{}, err
	}

	result, err := m.flow.Refresh(ctx, cfg, account.Credentials)
	if err != nil {
		return domain.SessionAccountAuth{}, err
	}

	// Persist only the fields the provider actually changed. A failed
	// sparse update is logged but does not invalidate the fresh session
	// tier the caller is about to receive.
	if !result.ClosedPatch.IsZero() {
		matched, err := m.accounts.UpdateFields(ctx, scope, p.AccountID, result.ClosedPatch)
		if err != nil {
			log.Error().Err(err).Str("account_id", p.AccountID).Msg("Failed to persist rotated credential fields")
		} else if !matched {
			log.Warn().Str("account_id", p.AccountID).Msg("Credential rotation update matched no account")
		}
	}

	auth := domain.SessionAccountAuth{
		AuthType:     cfg.AuthType,
		AllowedHosts: cfg.AllowedHosts,
		Credentials:  result.Session,
	}

	if err := m.sessions.Put(ctx, key, auth); err != nil {
		log.Warn().Err(err).Str("account_id", p.AccountID).Msg("Failed to update session credential cache")
	}

	return auth, nil
}

// ExecuteRequest resolves fresh request credentials for the account and
// performs the outbound call through the request executor.
func (m *IntegrationAuthManager) ExecuteRequest(ctx context.Context, p RequestCredentialParams, req OutboundRequest) RequestOutcome {
	creds := m.GetRequestCredentials(ctx, p)
	if creds.RequestStatus != domain.StatusOK {
		return RequestOutcome{Response: creds.Response}
	}

	auth := domain.SessionAccountAuth{
		AuthType:     domain.AuthTypeOAuth2,
		AllowedHosts: creds.AllowedHosts,
		Credentials:  *creds.Credentials,
	}

	outcome, err := m.executor.Execute(ctx, req, auth)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHostNotAllowed):
			return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, "Host URL(s) not allowed.")}
		case errors.Is(err, domain.ErrUnsupportedAuthType):
			return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, "Unsupported authorisation type")}
		default:
			return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, err.Error())}
		}
	}

	return outcome
}

type DeleteAccountParams struct {
	OwnerID       string
	IntegrationID string
	SessionID     string
	AccountID     string
	AccessType    string
}

// DeleteAccount removes the persisted account and evicts its cached
// session tier. The provider's revocation endpoint is not called; revoke
// URLs vary per provider and are left to a future extension.
func (m *IntegrationAuthManager) DeleteAccount(ctx context.Context, p DeleteAccountParams) domain.Response {
	accessType := domain.AccessType(p.AccessType)
	if !accessType.Valid() {
		return domain.NewResponse(domain.StatusFailed, "Unknown access_type")
	}

	scope := domain.AccountScope{
		OwnerID:       p.OwnerID,
		IntegrationID: p.IntegrationID,
		AccessType:    accessType,
	}

	removed, err := m.accounts.Remove(ctx, scope, p.AccountID)
	if err != nil {
		log.Error().Err(err).Str("account_id", p.AccountID).Msg("Account removal failed")
		return domain.NewResponse(domain.StatusFailed, "Account removal failed")
	}

	if !removed {
		return domain.NewResponse(domain.StatusFailed, "Account removal failed")
	}

	sessionKey := domain.SessionCredentialKey{
		SessionID:     p.SessionID,
		IntegrationID: p.IntegrationID,
		AccountID:     p.AccountID,
	}
	if err := m.sessions.Remove(ctx, sessionKey); err != nil {
		log.Warn().Err(err).Str("account_id", p.AccountID).Msg("Failed to evict session credentials")
	}

	return domain.NewResponse(domain.StatusOK, "Removed account "+p.AccountID)
}

// GetProviderConfig returns the secret-free provider configuration for
// module display.
func (m *IntegrationAuthManager) GetProviderConfig(ctx context.Context, integrationID, providerName string) domain.ProviderConfigResult {
	providerName = SanitizeProviderName(providerName)
	if providerName == "" {
		return domain.ProviderConfigResult{Response: domain.NewResponse(domain.StatusFailed, "Required info not set.")}
	}

	cfg, err := m.providerConfigs.GetProviderConfig(ctx, integrationID, providerName)
	if err != nil {
		return domain.ProviderConfigResult{Response: providerConfigErrorResponse(err)}
	}

	if cfg.AuthType != domain.AuthTypeOAuth2 {
		return domain.ProviderConfigResult{Response: domain.NewResponse(domain.StatusFailed, "Unknown authorisation type.")}
	}

	public := cfg.Public()

	return domain.ProviderConfigResult{
		Response: domain.NewResponse(domain.StatusOK, ""),
		Config:   &public,
	}
}

// SanitizeProviderName trims, caps and strips a caller-supplied provider
// name down to [a-zA-Z0-9_-].
func SanitizeProviderName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > 50 {
		name = name[:50]
	}
	return providerNamePattern.ReplaceAllString(name, "")
}

func formatAccountForModule(account domain.AccountAuth) domain.PublicAccountView {
	return domain.PublicAccountView{
		ID:           account.ID,
		AuthorizedAt: account.AuthorizedAt.UnixMilli(),
		AuthType:     account.AuthType,
		ProviderName: account.ProviderName,
		Credentials: domain.PublicSavedAuth{
			Profile: account.Credentials.Profile,
			Scope:   account.Credentials.Scope,
			Subject: account.Credentials.Subject,
			Issuer:  account.Credentials.Issuer,
		},
	}
}

func providerConfigErrorResponse(err error) domain.Response {
	switch {
	case errors.Is(err, domain.ErrProviderConfigNotFound):
		return domain.NewResponse(domain.StatusFailed, "Undefined authorisation provider.")
	default:
		return domain.NewResponse(domain.StatusFailed, "Integration config not found.")
	}
}

func exchangeErrorResponse(err error) domain.Response {
	var upstream *domain.UpstreamError
	var transport *domain.TransportError

	switch {
	case errors.Is(err, domain.ErrHostNotAllowed):
		return domain.NewResponse(domain.StatusFailed, "Host URL(s) not allowed.")
	case errors.Is(err, domain.ErrUnsupportedAuthType):
		return domain.NewResponse(domain.StatusFailed, "Unsupported authorisation type.")
	case errors.Is(err, domain.ErrMalformedResponse):
		return domain.NewResponse(domain.StatusFailed, "Authorisation server returned an unexpected response.")
	case errors.As(err, &upstream):
		return domain.NewResponse(domain.StatusFailed, upstream.Message)
	case errors.As(err, &transport):
		return domain.NewResponse(domain.StatusFailed, "An internal error occurred while exchanging OAuth2 token.")
	default:
		return domain.NewResponse(domain.StatusFailed, "An unexpected error occurred.")
	}
}

func refreshErrorResponse(err error) domain.Response {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return domain.NewResponse(domain.StatusFailed, "Account to use does not exist.")
	case errors.Is(err, domain.ErrNoRefreshToken):
		return domain.NewResponse(domain.StatusFailed, "Refresh token does not exist, please login again.")
	case errors.Is(err, domain.ErrProviderConfigNotFound):
		return domain.NewResponse(domain.StatusFailed, "Undefined authorisation provider.")
	default:
		return domain.NewResponse(domain.StatusFailed, "Cannot get fresh authorisation credentials, please login again.")
	}
}
