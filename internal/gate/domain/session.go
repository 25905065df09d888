package domain

import "time"

// SessionState is everything the gate keeps for one browser session.
//
// PendingRequest, RawParameters and ResolvedClient are written together and
// cleared together; ResolvedClient.ClientID always equals
// PendingRequest.ClientID while both are set. Subject and
// LastAuthenticationTimestamp belong to the authentication subsystem.
type SessionState struct {
	ID string `json:"id"`

	PendingRequest     *AuthorizationRequest `json:"pending_request,omitempty"`
	RawParameters      map[string]string     `json:"raw_parameters,omitempty"`
	ResolvedClient     *Client               `json:"resolved_client,omitempty"`
	LoginHint          string                `json:"login_hint,omitempty"`
	PromptLoginHandled bool                  `json:"prompt_login_handled,omitempty"`

	Subject                     string     `json:"subject,omitempty"`
	LastAuthenticationTimestamp *time.Time `json:"last_authentication_timestamp,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasPending reports whether an interaction is in flight.
func (s SessionState) HasPending() bool { return s.PendingRequest != nil }

// ClearInteraction drops the interaction scoped fields.
func (s *SessionState) ClearInteraction() {
	s.PendingRequest = nil
	s.RawParameters = nil
	s.ResolvedClient = nil
}
