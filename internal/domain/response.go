package domain

// Request status codes of the module-facing contract. Every operation
// resolves to one of these at the orchestrator boundary.
const (
	StatusFailed       = 0  // generic failure, see message
	StatusOK           = 1  // success
	StatusUnsaved      = 2  // authorized but not persisted, caller should retry
	StatusAccountLimit = -2 // account limit reached, no exchange attempted
)

// Response is the minimal status+message envelope shared by all
// module-facing results.
type Response struct {
	RequestStatus int    `json:"request_status"`
	Message       string `json:"message,omitempty"`
}

func NewResponse(status int, message string) Response {
	return Response{RequestStatus: status, Message: message}
}

// AddAccountResult is returned by the orchestrator's AddAccount. Open is
// only set on success and never contains access or refresh tokens.
type AddAccountResult struct {
	Response
	AccountID string         `json:"_id,omitempty"`
	Open      OpenCredential `json:"open_credentials,omitempty"`
}

// ListAccountsResult carries the secret-free account views.
type ListAccountsResult struct {
	Response
	Accounts []PublicAccountView `json:"accounts"`
}

// RequestCredentialsResult carries the session tier handed to modules for
// direct external calls.
type RequestCredentialsResult struct {
	Response
	Credentials  *SessionCredential `json:"credentials,omitempty"`
	AllowedHosts []string           `json:"allowed_hosts,omitempty"`
}

// ProviderConfigResult carries the secret-free provider configuration.
type ProviderConfigResult struct {
	Response
	Config *PublicProviderConfig `json:"config,omitempty"`
}
