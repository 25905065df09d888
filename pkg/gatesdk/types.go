package gatesdk

import "time"

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each backing store on /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Sessions string `json:"sessions"`
}

// LoginResponse is returned by POST /login when no return_to was given.
type LoginResponse struct {
	Subject  string    `json:"subject"`
	AuthTime time.Time `json:"auth_time"`
}

// LoginRequiredResponse is the 401 body of the authorize endpoint when the
// browser session is not authenticated.
type LoginRequiredResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	LoginURL         string `json:"login_url"`
}

// AuthenticationContext mirrors what the gate derived from prompt, max_age,
// login_hint and acr_values.
type AuthenticationContext struct {
	ForceAuthn bool     `json:"force_authn"`
	IsPassive  bool     `json:"is_passive"`
	LoginHint  string   `json:"login_hint,omitempty"`
	ACRValues  []string `json:"acr_values,omitempty"`
	MaxAge     *int     `json:"max_age,omitempty"`
}

// AuthorizeHandoff is the completed interaction handed to the token issuing
// machinery.
type AuthorizeHandoff struct {
	ClientID     string                 `json:"client_id"`
	RedirectURI  string                 `json:"redirect_uri,omitempty"`
	ResponseType string                 `json:"response_type,omitempty"`
	State        string                 `json:"state,omitempty"`
	Nonce        string                 `json:"nonce,omitempty"`
	Scopes       []string               `json:"scopes,omitempty"`
	Subject      string                 `json:"subject"`
	AuthTime     time.Time              `json:"auth_time"`
	AuthContext  *AuthenticationContext `json:"auth_context,omitempty"`
	Parameters   map[string]string      `json:"parameters,omitempty"`
}
