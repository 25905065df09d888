package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/oidcgate/internal/gate/authn"
	"github.com/aussiebroadwan/oidcgate/pkg/gatesdk"
	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

// LoginHandler is the built-in password login step.
type LoginHandler struct {
	Login *authn.LoginService
}

// HandleLogin authenticates the browser session.
//
//	@Summary		Password login
//	@Description	Authenticates the current browser session. When return_to is a relative path the
//	@Description	browser is sent back there, typically to the pending authorize URL.
//	@Tags			Authentication
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string					true	"Username"
//	@Param			password	formData	string					true	"Password"
//	@Param			return_to	formData	string					false	"Relative path to continue at"
//	@Success		200			{object}	gatesdk.LoginResponse	"Authenticated"
//	@Success		303			{string}	string					"Redirect to return_to"
//	@Failure		400			{object}	map[string]interface{}	"Malformed form body"
//	@Failure		401			{object}	map[string]interface{}	"Invalid credentials"	example({"error":"invalid_grant","error_description":"invalid username or password"})
//	@Failure		429			{object}	map[string]interface{}	"Rate limit exceeded"
//	@Router			/login [post]
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sid, ok := httpx.SessionIDFromContext(ctx)
	if !ok {
		httpx.ErrServerError.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.ErrInvalidFormBody.WriteError(w)
		return
	}

	identity, err := h.Login.Login(ctx, sid, r.PostForm.Get("username"), r.PostForm.Get("password"))
	if errors.Is(err, authn.ErrInvalidCredentials) {
		httpx.ErrInvalidCredentials.WriteError(w)
		return
	}
	if err != nil {
		slogx.FromContext(ctx).Error("login failed", "error", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	if returnTo := r.PostForm.Get("return_to"); isLocalPath(returnTo) {
		httpx.NoCache(w)
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gatesdk.LoginResponse{
		Subject:  identity.Subject,
		AuthTime: identity.AuthTime,
	})
}

// HandleLogout ends the browser session's authentication.
//
//	@Summary		Logout
//	@Description	Clears the authentication and any pending authorization interaction.
//	@Tags			Authentication
//	@Success		204	"Logged out"
//	@Failure		500	{object}	map[string]interface{}	"Server error"
//	@Router			/logout [post]
func (h *LoginHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sid, ok := httpx.SessionIDFromContext(ctx)
	if !ok {
		httpx.ErrServerError.WriteError(w)
		return
	}

	if err := h.Login.Logout(ctx, sid); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "error", err)
		httpx.ErrServerError.WriteError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// isLocalPath accepts only same-origin absolute paths. Control bytes are
// rejected because browsers drop tab and newline while parsing a Location,
// which would turn "/\t/host" into "//host".
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < 0x20 || p[i] == 0x7f {
			return false
		}
	}
	if strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return false
	}

	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil && strings.HasPrefix(u.Path, "/")
}
