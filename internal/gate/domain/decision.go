package domain

import "net/http"

type DecisionKind int

const (
	DecisionProceed DecisionKind = iota
	DecisionForceReauthentication
	DecisionDenyWithRedirect
	DecisionDenyWithError
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionProceed:
		return "proceed"
	case DecisionForceReauthentication:
		return "force_reauthentication"
	case DecisionDenyWithRedirect:
		return "deny_redirect"
	case DecisionDenyWithError:
		return "deny_error"
	default:
		return "unknown"
	}
}

// Decision is the outcome of policy evaluation for one request. Only the
// fields belonging to Kind are populated. Decisions are never persisted.
type Decision struct {
	Kind        DecisionKind
	RedirectURI string
	HTTPStatus  int
	Message     string
}

func Proceed() Decision               { return Decision{Kind: DecisionProceed} }
func ForceReauthentication() Decision { return Decision{Kind: DecisionForceReauthentication} }

func DenyWithRedirect(uri string) Decision {
	return Decision{Kind: DecisionDenyWithRedirect, RedirectURI: uri}
}

func DenyWithError(status int, msg string) Decision {
	return Decision{Kind: DecisionDenyWithError, HTTPStatus: status, Message: msg}
}

// AccessDenied is the generic denial shown when no safe redirect exists.
func AccessDenied() Decision {
	return DenyWithError(http.StatusForbidden, "Access Denied")
}

// PassesThrough reports whether downstream processing continues.
func (d Decision) PassesThrough() bool {
	return d.Kind == DecisionProceed || d.Kind == DecisionForceReauthentication
}
