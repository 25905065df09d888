package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oidcgate/internal/gate/authn"
	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/metrics"
	"github.com/aussiebroadwan/oidcgate/internal/gate/service"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store/drivers/memory"
	"github.com/aussiebroadwan/oidcgate/pkg/cryptox"
	"github.com/aussiebroadwan/oidcgate/pkg/gatesdk"
	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
	"github.com/aussiebroadwan/oidcgate/pkg/sessioncookie"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

const testPassword = "correct horse battery staple"

var (
	hashOnce  sync.Once
	aliceHash string
)

func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
		h, err := cryptox.HashPassword(testPassword)
		require.NoError(t, err)
		aliceHash = h
	})
	return aliceHash
}

type testGate struct {
	mu  sync.Mutex
	now time.Time

	srv    *httptest.Server
	mem    *memory.Store
	state  *store.SessionState
	router *Router
}

func (g *testGate) clock() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now
}

func (g *testGate) advance(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = g.now.Add(d)
}

func (g *testGate) client() *gatesdk.SDKClient {
	return gatesdk.NewSDKClient(g.srv.URL)
}

func newTestGate(t *testing.T) *testGate {
	t.Helper()

	hash := passwordHash(t)
	ctx := context.Background()

	g := &testGate{now: time.Now().UTC(), mem: memory.NewStore()}
	g.mem.Now = g.clock

	require.NoError(t, g.mem.Clients().UpsertClient(ctx, domain.Client{
		ClientID:     "c1",
		RedirectURIs: []string{"https://rp/cb"},
		SubjectType:  domain.SubjectTypePublic,
	}))
	require.NoError(t, g.mem.Users().UpsertUser(ctx, domain.User{
		Username:     "alice",
		Subject:      "sub-alice",
		PasswordHash: hash,
	}))

	g.state = &store.SessionState{Sessions: g.mem.Sessions(), Now: g.clock}
	auth := &authn.SessionAuthenticator{Sessions: g.state, Lifetime: 12 * time.Hour, Now: g.clock}

	reg := prometheus.NewRegistry()
	ic := &service.Interceptor{
		Prefix:   gatesdk.DefaultAuthorizePath,
		Builder:  &service.RequestBuilder{Clients: g.mem.Clients()},
		Sessions: g.state,
		Auth:     auth,
		Prompt:   &service.PromptEvaluator{},
		MaxAge:   &service.MaxAgeEvaluator{Now: g.clock},
		Metrics:  metrics.New(reg),
	}

	codec := &sessioncookie.Codec{Name: "gate_session", Secret: []byte("test-secret-test-secret-test-sec"), TTL: time.Hour}

	g.router = NewRouter("test", "/login", g.mem, g.mem.Sessions(), codec, slogx.Discard())
	g.router.Interceptor = ic
	g.router.SessionState = g.state
	g.router.Authenticator = auth
	g.router.LoginService = &authn.LoginService{Users: g.mem.Users(), Auth: auth}
	g.router.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	g.router.ApplyRoutes()

	g.srv = httptest.NewServer(g.router)
	t.Cleanup(g.srv.Close)
	return g
}

func TestPromptNoneWithoutSessionRedirectsToClient(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	res, err := g.client().Authorize(context.Background(), gatesdk.AuthorizeParams{
		ClientID:    "c1",
		RedirectURI: "https://rp/cb",
		Prompt:      []string{"none"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "https://rp/cb?error=login_required", res.Location)
}

func TestLoginFlowHandsOffPendingRequest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)
	c := g.client()
	params := gatesdk.AuthorizeParams{
		ClientID:    "c1",
		RedirectURI: "https://rp/cb",
		State:       "st-1",
		Scopes:      []string{"openid"},
		LoginHint:   "alice",
	}

	res, err := c.Authorize(ctx, params)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, httpx.ErrorCodeLoginRequired, res.LoginRequired.Error)

	loginURL, err := url.Parse(res.LoginRequired.LoginURL)
	require.NoError(t, err)
	require.Equal(t, "/login", loginURL.Path)
	returnTo := loginURL.Query().Get("return_to")
	require.True(t, strings.HasPrefix(returnTo, gatesdk.DefaultAuthorizePath+"?"))

	login, err := c.Login(ctx, "alice", testPassword, returnTo)
	require.NoError(t, err)
	require.Equal(t, returnTo, login.Location)

	// A different state on the way back must not replace the pending request.
	params.State = "st-2"
	res, err = c.Authorize(ctx, params)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "c1", res.Handoff.ClientID)
	require.Equal(t, "st-1", res.Handoff.State)
	require.Equal(t, "sub-alice", res.Handoff.Subject)
	require.Equal(t, "alice", res.Handoff.Parameters["login_hint"])

	// The interaction is complete; a bare request starts over.
	res, err = c.Authorize(ctx, gatesdk.AuthorizeParams{})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Missing client_id", res.Message)
}

func TestPromptLoginForcesOneReauthentication(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)
	c := g.client()

	login, err := c.Login(ctx, "alice", testPassword, "")
	require.NoError(t, err)
	require.Equal(t, "sub-alice", login.Response.Subject)

	params := gatesdk.AuthorizeParams{ClientID: "c1", RedirectURI: "https://rp/cb", Prompt: []string{"login"}}
	res, err := c.Authorize(ctx, params)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	_, err = c.Login(ctx, "alice", testPassword, "")
	require.NoError(t, err)

	res, err = c.Authorize(ctx, params)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "sub-alice", res.Handoff.Subject)
}

func TestMaxAgeForcesReauthentication(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)
	c := g.client()

	_, err := c.Login(ctx, "alice", testPassword, "")
	require.NoError(t, err)
	g.advance(120 * time.Second)

	maxAge := 60
	res, err := c.Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "c1", MaxAge: &maxAge})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	_, err = c.Login(ctx, "alice", testPassword, "")
	require.NoError(t, err)

	res, err = c.Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "c1", MaxAge: &maxAge})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 60, *res.Handoff.AuthContext.MaxAge)
}

func TestAuthorizeSubPathReachesHandOff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)
	c := g.client()
	c.AuthorizePath = gatesdk.DefaultAuthorizePath + "/continue"

	res, err := c.Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "c1", State: "sub"})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	_, err = c.Login(ctx, "alice", testPassword, "")
	require.NoError(t, err)

	res, err = c.Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "c1", State: "sub-again"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "sub", res.Handoff.State)

	// The interaction completed, so the exact path starts a fresh one.
	c.AuthorizePath = gatesdk.DefaultAuthorizePath
	res, err = c.Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "c1", State: "exact"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "exact", res.Handoff.State)
}

func TestRejectedAuthorizationRequests(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)

	res, err := g.client().Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "unknown"})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Unknown client", res.Message)

	res, err = g.client().Authorize(ctx, gatesdk.AuthorizeParams{
		ClientID:    "c1",
		RedirectURI: "https://evil/cb",
		Prompt:      []string{"none"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	require.Equal(t, "Access Denied", res.Message)
}

func TestLoginErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)
	c := g.client()

	_, err := c.Login(ctx, "alice", "wrong", "")
	var oauthErr *httpx.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, http.StatusUnauthorized, oauthErr.StatusCode)
	require.Equal(t, httpx.ErrorCodeInvalidGrant, oauthErr.Code)

	// Off-site return_to is ignored.
	for _, returnTo := range []string{"https://evil/", "/\t/evil.example/x"} {
		login, err := c.Login(ctx, "alice", testPassword, returnTo)
		require.NoError(t, err)
		require.Empty(t, login.Location, "%q", returnTo)
		require.NotNil(t, login.Response)
	}
}

func TestLogoutEndsAuthentication(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)
	c := g.client()

	_, err := c.Login(ctx, "alice", testPassword, "")
	require.NoError(t, err)
	require.NoError(t, c.Logout(ctx))

	res, err := c.Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "c1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newTestGate(t)
	c := g.client()

	live, err := c.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := c.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Sessions)

	// Non-authorize paths never get a session.
	resp, err := http.Get(g.srv.URL + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, resp.Header.Values("Set-Cookie"))
	require.NotEmpty(t, resp.Header.Get(slogx.RequestIDHeader))

	_, err = c.Authorize(ctx, gatesdk.AuthorizeParams{ClientID: "c1", RedirectURI: "https://rp/cb", Prompt: []string{"none"}})
	require.NoError(t, err)

	resp, err = http.Get(g.srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), `gate_intercept_decisions_total{decision="deny_redirect",reason="prompt_none_unauthenticated"} 1`)
}

type brokenSessions struct{}

func (brokenSessions) Get(context.Context, string) (domain.SessionState, error) {
	return domain.SessionState{}, io.ErrUnexpectedEOF
}
func (brokenSessions) Put(context.Context, domain.SessionState) error { return io.ErrUnexpectedEOF }
func (brokenSessions) Delete(context.Context, string) error           { return io.ErrUnexpectedEOF }
func (brokenSessions) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, io.ErrUnexpectedEOF
}
func (brokenSessions) Ping(context.Context) error { return io.ErrUnexpectedEOF }

func TestInterceptMiddlewareStoreFailure(t *testing.T) {
	t.Parallel()

	state := &store.SessionState{Sessions: brokenSessions{}}
	ic := &service.Interceptor{
		Prefix:   gatesdk.DefaultAuthorizePath,
		Builder:  &service.RequestBuilder{Clients: memory.NewStore().Clients()},
		Sessions: state,
		Auth:     &authn.SessionAuthenticator{Sessions: state},
		Prompt:   &service.PromptEvaluator{},
		MaxAge:   &service.MaxAgeEvaluator{},
	}
	codec := &sessioncookie.Codec{Name: "gate_session", Secret: []byte("secret"), TTL: time.Hour}

	called := false
	h := InterceptMiddleware(ic, codec)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, gatesdk.DefaultAuthorizePath+"?client_id=c1", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error", rec.Body.String())
	require.False(t, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	require.True(t, called)
	require.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestAuthorizeHandlerWithoutPendingRequest(t *testing.T) {
	t.Parallel()

	state := &store.SessionState{Sessions: memory.NewStore().Sessions()}
	h := &AuthorizeHandler{Sessions: state, Auth: &authn.SessionAuthenticator{Sessions: state}, LoginPath: "/login"}

	req := httptest.NewRequest(http.MethodGet, gatesdk.DefaultAuthorizePath, nil)
	req = req.WithContext(httpx.WithSessionID(req.Context(), "sid"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), httpx.ErrorCodeInvalidRequest)
}

func TestIsLocalPath(t *testing.T) {
	t.Parallel()

	require.True(t, isLocalPath("/profile/oidc/authorize?client_id=c1&redirect_uri=https%3A%2F%2Frp%2Fcb"))
	require.True(t, isLocalPath("/"))

	for _, p := range []string{
		"",
		"https://evil/",
		"//evil/",
		"/\\evil",
		"relative",
		"/a\r\nb",
		"/\t/evil.example",
		"/\t/evil.example/x",
		"/\x0b/evil.example",
		"/\x00/evil.example",
		"/\x7f/evil.example",
	} {
		require.False(t, isLocalPath(p), "%q", p)
	}
}
