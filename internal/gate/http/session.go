package http

import (
	"net/http"

	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
	"github.com/aussiebroadwan/oidcgate/pkg/idx"
	"github.com/aussiebroadwan/oidcgate/pkg/sessioncookie"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

// resolveSession returns the browser session id from the signed cookie,
// minting a new session when the cookie is missing or invalid.
func resolveSession(w http.ResponseWriter, r *http.Request, codec *sessioncookie.Codec) (string, error) {
	if sid, err := codec.Read(r); err == nil {
		return sid, nil
	}

	sid := idx.New().String()
	if err := codec.Write(w, sid); err != nil {
		return "", err
	}
	return sid, nil
}

// SessionMiddleware puts the browser session id into the request context.
func SessionMiddleware(codec *sessioncookie.Codec) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := httpx.SessionIDFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			sid, err := resolveSession(w, r, codec)
			if err != nil {
				slogx.FromContext(r.Context()).Error("failed to establish session", "error", err)
				httpx.ErrServerError.WriteError(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(httpx.WithSessionID(r.Context(), sid)))
		})
	}
}
