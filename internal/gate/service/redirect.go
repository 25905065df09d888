package service

import (
	"errors"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
)

var ErrInvalidRedirect = errors.New("invalid redirect_uri")

// Error codes sent back to the relying party.
const (
	ErrorLoginRequired = "login_required"
	ErrorAccessDenied  = "access_denied"
)

// RedirectResolver checks candidate redirect targets against a client's
// registered URIs.
type RedirectResolver struct{}

// Resolve returns the canonical registered URI matching candidate. The match
// is exact; no normalisation is applied.
func (RedirectResolver) Resolve(candidate string, client domain.Client) (string, error) {
	if !isSafeRedirectURI(candidate) {
		return "", ErrInvalidRedirect
	}
	if _, err := url.Parse(candidate); err != nil {
		return "", ErrInvalidRedirect
	}
	for _, registered := range client.RedirectURIs {
		if registered == candidate {
			return registered, nil
		}
	}
	return "", ErrInvalidRedirect
}

// BuildErrorRedirect appends error and, when non-empty, state to canonical.
// Existing query parameters are kept as they are. The output is a pure
// function of the inputs.
func BuildErrorRedirect(canonical, errorCode, state string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return "", ErrInvalidRedirect
	}

	extra := url.Values{}
	extra.Set("error", errorCode)
	if state != "" {
		extra.Set("state", state)
	}

	if u.RawQuery == "" {
		u.RawQuery = extra.Encode()
	} else {
		u.RawQuery = u.RawQuery + "&" + extra.Encode()
	}
	return u.String(), nil
}

func isSafeRedirectURI(uri string) bool {
	if uri == "" {
		return false
	}

	lower := strings.ToLower(uri)
	for _, scheme := range []string{"javascript:", "data:", "file:", "vbscript:", "about:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}

	// protocol relative
	if strings.HasPrefix(uri, "//") {
		return false
	}

	idx := strings.Index(uri, "://")
	if idx == -1 {
		return false
	}
	scheme, rest := uri[:idx], uri[idx+3:]
	if scheme != "http" && scheme != "https" {
		return false
	}

	host := rest
	if i := strings.IndexAny(host, "/?"); i != -1 {
		host = host[:i]
	}
	// userinfo tricks and fragments smuggled into the authority
	if strings.Contains(host, "@") || strings.Contains(host, "#") || host == "" {
		return false
	}
	return true
}
