package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/oidcgate/internal/gate/authn"
	"github.com/aussiebroadwan/oidcgate/internal/gate/service"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/pkg/gatesdk"
	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

var errNoPendingRequest = httpx.NewOAuth2Error(http.StatusBadRequest, httpx.ErrorCodeInvalidRequest,
	"no authorization request is in progress")

// AuthorizeHandler is reached only after the interceptor let the request
// through. It hands the completed interaction to the token issuing side.
type AuthorizeHandler struct {
	Sessions    *store.SessionState
	Auth        *authn.SessionAuthenticator
	Interceptor *service.Interceptor
	LoginPath   string
}

// ServeHTTP completes the pending authorization interaction.
//
//	@Summary		OpenID Connect authorization endpoint
//	@Description	Every request is first evaluated by the interceptor against prompt and max_age.
//	@Description
//	@Description	**Response:**
//	@Description	- 302 back to redirect_uri with error=login_required for prompt=none without a session
//	@Description	- 400/403 plain text when the request or redirect target is rejected
//	@Description	- 401 JSON login_required with login_url when the user has to authenticate
//	@Description	- 200 JSON hand-off once the user is authenticated
//	@Tags			OIDC
//	@Produce		json
//	@Param			client_id		query		string							true	"Registered client identifier"
//	@Param			redirect_uri	query		string							false	"Callback URI (must match a registered redirect URI)"
//	@Param			state			query		string							false	"Opaque value echoed back to the client"
//	@Param			scope			query		string							false	"Space-delimited scopes"
//	@Param			prompt			query		string							false	"Space-delimited prompt values"	Enums(none, login)
//	@Param			max_age			query		integer							false	"Maximum authentication age in seconds"
//	@Param			login_hint		query		string							false	"Hint about the user to authenticate"
//	@Success		200				{object}	gatesdk.AuthorizeHandoff		"Authenticated hand-off"
//	@Success		302				{string}	string							"Redirect to redirect_uri with error parameters"
//	@Failure		400				{string}	string							"Rejected authorization request"
//	@Failure		401				{object}	gatesdk.LoginRequiredResponse	"Authentication required"
//	@Failure		403				{string}	string							"Access Denied"
//	@Router			/profile/oidc/authorize [get]
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sid, ok := httpx.SessionIDFromContext(ctx)
	if !ok {
		httpx.ErrServerError.WriteError(w)
		return
	}

	rec, err := h.Sessions.Load(ctx, sid)
	if err != nil {
		log.Error("failed to load session", "error", err)
		httpx.ErrServerError.WriteError(w)
		return
	}
	if rec.PendingRequest == nil {
		errNoPendingRequest.WriteError(w)
		return
	}

	identity, err := h.Auth.CheckSession(ctx, sid)
	if errors.Is(err, authn.ErrNoActiveIdpSession) {
		httpx.WriteJSON(w, http.StatusUnauthorized, gatesdk.LoginRequiredResponse{
			Error:            httpx.ErrorCodeLoginRequired,
			ErrorDescription: "user authentication required",
			LoginURL:         h.LoginPath + "?return_to=" + url.QueryEscape(r.URL.RequestURI()),
		})
		return
	}
	if err != nil {
		log.Error("failed to check authentication", "error", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	if err := h.Interceptor.Complete(ctx, sid); err != nil {
		log.Error("failed to complete interaction", "error", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	req := rec.PendingRequest
	handoff := gatesdk.AuthorizeHandoff{
		ClientID:     req.ClientID,
		RedirectURI:  req.RedirectURI,
		ResponseType: req.ResponseType,
		State:        req.State,
		Nonce:        req.Nonce,
		Scopes:       req.Scopes,
		Subject:      identity.Subject,
		AuthTime:     identity.AuthTime,
		Parameters:   rec.RawParameters,
	}
	if ac, ok := service.AuthContextFromContext(ctx); ok {
		handoff.AuthContext = &gatesdk.AuthenticationContext{
			ForceAuthn: ac.ForceAuthn,
			IsPassive:  ac.IsPassive,
			LoginHint:  ac.LoginHint,
			ACRValues:  ac.ACRValues,
			MaxAge:     ac.MaxAge,
		}
	}

	log.Info("authorization interaction completed", "client_id", req.ClientID, "subject", identity.Subject)
	httpx.WriteJSON(w, http.StatusOK, handoff)
}
