package gatesdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// AuthorizeParams are the OpenID Connect authorization request parameters.
type AuthorizeParams struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	State        string
	Nonce        string
	LoginHint    string
	Scopes       []string
	Prompt       []string
	ACRValues    []string
	MaxAge       *int

	// Extra parameters are sent as is.
	Extra url.Values
}

// Values encodes the non-empty parameters.
func (p AuthorizeParams) Values() url.Values {
	v := url.Values{}
	for key, vals := range p.Extra {
		v[key] = append([]string(nil), vals...)
	}

	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("client_id", p.ClientID)
	set("redirect_uri", p.RedirectURI)
	set("response_type", p.ResponseType)
	set("state", p.State)
	set("nonce", p.Nonce)
	set("login_hint", p.LoginHint)
	set("scope", strings.Join(p.Scopes, " "))
	set("prompt", strings.Join(p.Prompt, " "))
	set("acr_values", strings.Join(p.ACRValues, " "))
	if p.MaxAge != nil {
		v.Set("max_age", strconv.Itoa(*p.MaxAge))
	}
	return v
}

// BuildAuthorizeURL returns the absolute authorize URL for p.
func (c *SDKClient) BuildAuthorizeURL(p AuthorizeParams) string {
	u := c.url(c.AuthorizePath)
	if q := p.Values().Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// AuthorizeResult is how the gate answered an authorization request.
// Exactly one of Location, Handoff, LoginRequired or Message is meaningful,
// depending on StatusCode.
type AuthorizeResult struct {
	StatusCode    int
	Location      string
	Handoff       *AuthorizeHandoff
	LoginRequired *LoginRequiredResponse
	Message       string
}

// Authorize sends p to the authorize endpoint. Protocol outcomes, including
// denials, are reported in the result; only transport failures are errors.
func (c *SDKClient) Authorize(ctx context.Context, p AuthorizeParams) (*AuthorizeResult, error) {
	path := c.AuthorizePath
	if q := p.Values().Encode(); q != "" {
		path += "?" + q
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	res := &AuthorizeResult{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusFound, http.StatusSeeOther:
		res.Location = resp.Header.Get("Location")
	case http.StatusOK:
		res.Handoff = &AuthorizeHandoff{}
		if err := json.Unmarshal(body, res.Handoff); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	case http.StatusUnauthorized:
		res.LoginRequired = &LoginRequiredResponse{}
		if err := json.Unmarshal(body, res.LoginRequired); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	default:
		res.Message = strings.TrimSpace(string(body))
	}
	return res, nil
}
