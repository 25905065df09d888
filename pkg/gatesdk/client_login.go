package gatesdk

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// LoginResult holds either the redirect to return_to or the JSON body.
type LoginResult struct {
	Location string
	Response *LoginResponse
}

// Login posts credentials to /login. returnTo is optional and must be a
// relative path.
func (c *SDKClient) Login(ctx context.Context, username, password, returnTo string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	if returnTo != "" {
		form.Set("return_to", returnTo)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/login", strings.NewReader(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return &LoginResult{Location: resp.Header.Get("Location")}, nil
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &LoginResult{Response: &out}, nil
}

// Logout ends the authentication and any pending interaction.
func (c *SDKClient) Logout(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/logout", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, body)
	}
	return nil
}
