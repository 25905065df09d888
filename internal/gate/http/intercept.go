package http

import (
	"net/http"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/service"
	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
	"github.com/aussiebroadwan/oidcgate/pkg/sessioncookie"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

// InterceptMiddleware runs every request under the authorize path through
// the interceptor. Other paths are passed on untouched.
func InterceptMiddleware(ic *service.Interceptor, codec *sessioncookie.Codec) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ic.Matches(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			log := slogx.FromContext(r.Context())

			sid, err := resolveSession(w, r, codec)
			if err != nil {
				log.Error("failed to establish session", "error", err)
				httpx.WriteText(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			if err := r.ParseForm(); err != nil {
				httpx.WriteText(w, http.StatusBadRequest, "Bad Request")
				return
			}

			res, err := ic.Intercept(r.Context(), service.Interception{
				Path:      r.URL.Path,
				Params:    r.Form,
				SessionID: sid,
			})
			if err != nil {
				httpx.WriteText(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			switch res.Decision.Kind {
			case domain.DecisionProceed, domain.DecisionForceReauthentication:
				ctx := httpx.WithSessionID(r.Context(), sid)
				if res.AuthContext != nil {
					ctx = service.WithAuthContext(ctx, res.AuthContext)
				}
				next.ServeHTTP(w, r.WithContext(ctx))

			case domain.DecisionDenyWithRedirect:
				httpx.NoCache(w)
				w.Header().Set("Location", res.Decision.RedirectURI)
				w.WriteHeader(http.StatusFound)

			default:
				httpx.WriteText(w, res.Decision.HTTPStatus, res.Decision.Message)
			}
		})
	}
}
