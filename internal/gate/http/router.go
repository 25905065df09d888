package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/aussiebroadwan/oidcgate/internal/gate/authn"
	"github.com/aussiebroadwan/oidcgate/internal/gate/service"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
	"github.com/aussiebroadwan/oidcgate/pkg/sessioncookie"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"

	_ "github.com/aussiebroadwan/oidcgate/api/gate" // Swagger docs
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	loginPath    string
	logger       *slog.Logger

	store    store.Store
	sessions store.Sessions
	cookies  *sessioncookie.Codec

	Interceptor   *service.Interceptor
	SessionState  *store.SessionState
	Authenticator *authn.SessionAuthenticator
	LoginService  *authn.LoginService

	// MetricsHandler serves /metrics. Defaults to the default registry.
	MetricsHandler http.Handler
}

// NewRouter creates a router. sessions is the session backend in use, which
// may differ from st.Sessions().
func NewRouter(
	buildVersion, loginPath string,
	st store.Store,
	sessions store.Sessions,
	cookies *sessioncookie.Codec,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		loginPath:    loginPath,
		logger:       logger,
		store:        st,
		sessions:     sessions,
		cookies:      cookies,
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Service fields must be set first.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		InterceptMiddleware(r.Interceptor, r.cookies),
	}

	r.registerAuthorize()
	r.registerLogin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			oidcgate
//	@version		0.1.0
//	@description	Gate in front of an OpenID Connect authorization endpoint enforcing prompt and max_age.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/oidcgate
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuthorize() {
	h := &AuthorizeHandler{
		Sessions:    r.SessionState,
		Auth:        r.Authenticator,
		Interceptor: r.Interceptor,
		LoginPath:   r.loginPath,
	}

	// Interception already happened globally; this only rate limits the hand-off.
	limited := httpx.Chain(h, httpx.RateLimitByIP(httpx.LenientLimit))

	// Sub-paths are intercepted too, so they must reach the hand-off as well.
	base := strings.TrimSuffix(r.Interceptor.Prefix, "/")
	patterns := []string{base, base + "/"}
	if base == "" {
		patterns = []string{"/"}
	}
	for _, pattern := range patterns {
		r.Mux.Handle("GET "+pattern, limited)
		r.Mux.Handle("POST "+pattern, limited)
	}
}

func (r *Router) registerLogin() {
	h := &LoginHandler{Login: r.LoginService}

	// POST /login - strict rate limit by IP + username to slow brute force
	r.Mux.Handle("POST "+r.loginPath,
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
			SessionMiddleware(r.cookies),
		),
	)

	r.Mux.Handle("POST /logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			SessionMiddleware(r.cookies),
			httpx.RateLimitBySession(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.sessions),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	metricsHandler := r.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Mux.Handle("GET /metrics",
		httpx.Chain(metricsHandler,
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
