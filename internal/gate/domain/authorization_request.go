package domain

import "slices"

// Prompt values from OIDC Core 3.1.2.1.
const (
	PromptNone          = "none"
	PromptLogin         = "login"
	PromptConsent       = "consent"
	PromptSelectAccount = "select_account"
)

// AuthorizationRequest is the validated form of an inbound authorization
// request. It is built once per browser interaction and never mutated.
type AuthorizationRequest struct {
	ClientID     string            `json:"client_id"`
	RedirectURI  string            `json:"redirect_uri,omitempty"`
	ResponseType string            `json:"response_type,omitempty"`
	State        string            `json:"state,omitempty"`
	Nonce        string            `json:"nonce,omitempty"`
	Scopes       []string          `json:"scopes,omitempty"`
	Prompt       []string          `json:"prompt,omitempty"`
	MaxAge       *int              `json:"max_age,omitempty"`
	ACRValues    []string          `json:"acr_values,omitempty"`
	LoginHint    string            `json:"login_hint,omitempty"`
	Extensions   map[string]string `json:"extensions,omitempty"`
}

// HasPrompt reports whether token was requested in prompt.
func (r AuthorizationRequest) HasPrompt(token string) bool {
	return slices.Contains(r.Prompt, token)
}
