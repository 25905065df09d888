package domain

// AuthenticationContext tells the downstream login step how to behave for
// the current interaction.
type AuthenticationContext struct {
	ForceAuthn bool     `json:"force_authn"`
	IsPassive  bool     `json:"is_passive"`
	LoginHint  string   `json:"login_hint,omitempty"`
	ACRValues  []string `json:"acr_values,omitempty"`
	MaxAge     *int     `json:"max_age,omitempty"`
}

// User is a local account for the built-in password login.
type User struct {
	Username     string
	Subject      string
	PasswordHash string
}
