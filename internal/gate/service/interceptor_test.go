package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oidcgate/internal/gate/authn"
	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/metrics"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store/drivers/memory"
)

const authorizePath = "/profile/oidc/authorize"

type countingSessions struct {
	store.Sessions
	puts int
}

func (c *countingSessions) Put(ctx context.Context, rec domain.SessionState) error {
	c.puts++
	return c.Sessions.Put(ctx, rec)
}

type brokenSessions struct{}

var errBackend = errors.New("backend down")

func (brokenSessions) Get(context.Context, string) (domain.SessionState, error) {
	return domain.SessionState{}, errBackend
}
func (brokenSessions) Put(context.Context, domain.SessionState) error { return errBackend }
func (brokenSessions) Delete(context.Context, string) error           { return errBackend }
func (brokenSessions) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errBackend
}
func (brokenSessions) Ping(context.Context) error { return errBackend }

type fixture struct {
	now      time.Time
	mem      *memory.Store
	sessions *countingSessions
	state    *store.SessionState
	ic       *Interceptor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), mem: memory.NewStore()}
	clock := func() time.Time { return f.now }
	f.mem.Now = clock
	f.sessions = &countingSessions{Sessions: f.mem.Sessions()}
	f.state = &store.SessionState{Sessions: f.sessions, Now: clock}

	require.NoError(t, f.mem.Clients().UpsertClient(context.Background(), domain.Client{
		ClientID:     "c1",
		RedirectURIs: []string{"https://rp/cb"},
		SubjectType:  domain.SubjectTypePublic,
	}))

	f.ic = &Interceptor{
		Prefix:   authorizePath,
		Builder:  &RequestBuilder{Clients: f.mem.Clients()},
		Sessions: f.state,
		Auth:     &authn.SessionAuthenticator{Sessions: f.state, Lifetime: 24 * time.Hour, Now: clock},
		Prompt:   &PromptEvaluator{},
		MaxAge:   &MaxAgeEvaluator{Now: clock},
		Now:      clock,
	}
	return f
}

func (f *fixture) authenticate(t *testing.T, sid string, ago time.Duration) {
	t.Helper()
	require.NoError(t, f.state.RecordAuthentication(context.Background(), sid, "sub-1", f.now.Add(-ago)))
}

func (f *fixture) intercept(t *testing.T, sid string, params url.Values) Result {
	t.Helper()
	res, err := f.ic.Intercept(context.Background(), Interception{Path: authorizePath, Params: params, SessionID: sid})
	require.NoError(t, err)
	return res
}

func (f *fixture) pending(t *testing.T, sid string) *domain.AuthorizationRequest {
	t.Helper()
	p, err := f.state.GetPending(context.Background(), sid)
	require.NoError(t, err)
	return p
}

func (f *fixture) authenticated(t *testing.T, sid string) bool {
	t.Helper()
	ok, err := f.ic.Auth.IsAuthenticated(context.Background(), sid)
	require.NoError(t, err)
	return ok
}

func TestInterceptorMatches(t *testing.T) {
	t.Parallel()

	ic := &Interceptor{Prefix: authorizePath}
	require.True(t, ic.Matches(authorizePath))
	require.True(t, ic.Matches(authorizePath+"/step"))
	require.False(t, ic.Matches(authorizePath+"x"))
	require.False(t, ic.Matches("/login"))
	require.False(t, (&Interceptor{}).Matches("/"))
}

func TestInterceptorPassThrough(t *testing.T) {
	t.Parallel()

	t.Run("non matching paths have no side effects", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.ic.Intercept(context.Background(), Interception{
			Path:      "/login",
			Params:    url.Values{"client_id": {"c1"}, "prompt": {"login"}},
			SessionID: "sid",
		})
		require.NoError(t, err)
		require.Equal(t, StateNotApplicable, res.State)
		require.Equal(t, domain.DecisionProceed, res.Decision.Kind)
		require.Zero(t, f.sessions.puts)
	})

	t.Run("pending request is never rebuilt", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate(t, "sid", time.Minute)

		first := f.intercept(t, "sid", url.Values{"client_id": {"c1"}, "state": {"one"}})
		require.Equal(t, StateDecided, first.State)
		puts := f.sessions.puts

		second := f.intercept(t, "sid", url.Values{"client_id": {"c1"}, "state": {"two"}, "prompt": {"login"}})
		require.Equal(t, StatePendingExists, second.State)
		require.Equal(t, domain.DecisionProceed, second.Decision.Kind)
		require.Equal(t, puts, f.sessions.puts)
		require.Equal(t, "one", f.pending(t, "sid").State)
		require.True(t, f.authenticated(t, "sid"))
	})

	t.Run("pending request keeps the client default max age", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.mem.Clients().UpsertClient(context.Background(), domain.Client{
			ClientID:      "c2",
			RedirectURIs:  []string{"https://rp2/cb"},
			DefaultMaxAge: intPtr(300),
		}))
		f.authenticate(t, "sid", time.Minute)

		first := f.intercept(t, "sid", url.Values{"client_id": {"c2"}})
		require.Equal(t, 300, *first.AuthContext.MaxAge)

		second := f.intercept(t, "sid", url.Values{"client_id": {"c2"}})
		require.Equal(t, StatePendingExists, second.State)
		require.Equal(t, 300, *second.AuthContext.MaxAge)
	})
}

func TestInterceptorRejectsBadRequests(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		params url.Values
		err    error
	}{
		"missing client_id": {url.Values{"redirect_uri": {"https://rp/cb"}}, ErrMissingClientID},
		"unknown client":    {url.Values{"client_id": {"unknown"}}, ErrUnknownClient},
		"malformed max_age": {url.Values{"client_id": {"c1"}, "max_age": {"soon"}}, ErrInvalidRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			res := f.intercept(t, "sid", tc.params)

			require.Equal(t, domain.DecisionDenyWithError, res.Decision.Kind)
			require.Equal(t, http.StatusBadRequest, res.Decision.HTTPStatus)
			require.ErrorIs(t, res.Err, tc.err)
			require.Nil(t, f.pending(t, "sid"))
			require.Zero(t, f.sessions.puts)
		})
	}
}

func TestInterceptorPromptNone(t *testing.T) {
	t.Parallel()

	t.Run("unauthenticated redirects back with login_required", func(t *testing.T) {
		f := newFixture(t)
		res := f.intercept(t, "sid", url.Values{
			"client_id":    {"c1"},
			"redirect_uri": {"https://rp/cb"},
			"prompt":       {"none"},
		})

		require.Equal(t, domain.DecisionDenyWithRedirect, res.Decision.Kind)
		require.Equal(t, "https://rp/cb?error=login_required", res.Decision.RedirectURI)
		require.Nil(t, f.pending(t, "sid"))
	})

	t.Run("state is echoed", func(t *testing.T) {
		f := newFixture(t)
		res := f.intercept(t, "sid", url.Values{
			"client_id":    {"c1"},
			"redirect_uri": {"https://rp/cb"},
			"prompt":       {"none"},
			"state":        {"af0ifjsldkj"},
		})
		require.Equal(t, "https://rp/cb?error=login_required&state=af0ifjsldkj", res.Decision.RedirectURI)
	})

	t.Run("unregistered redirect is access denied", func(t *testing.T) {
		f := newFixture(t)
		res := f.intercept(t, "sid", url.Values{
			"client_id":    {"c1"},
			"redirect_uri": {"https://evil/cb"},
			"prompt":       {"none"},
		})
		require.Equal(t, domain.DecisionDenyWithError, res.Decision.Kind)
		require.Equal(t, http.StatusForbidden, res.Decision.HTTPStatus)
		require.Equal(t, "Access Denied", res.Decision.Message)
	})

	t.Run("authenticated proceeds passively", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate(t, "sid", time.Minute)

		res := f.intercept(t, "sid", url.Values{"client_id": {"c1"}, "redirect_uri": {"https://rp/cb"}, "prompt": {"none"}})
		require.Equal(t, domain.DecisionProceed, res.Decision.Kind)
		require.True(t, res.AuthContext.IsPassive)
		require.False(t, res.AuthContext.ForceAuthn)
		require.NotNil(t, f.pending(t, "sid"))
	})

	t.Run("exceeded max age never becomes interactive", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate(t, "sid", time.Hour)

		res := f.intercept(t, "sid", url.Values{
			"client_id":    {"c1"},
			"redirect_uri": {"https://rp/cb"},
			"prompt":       {"none"},
			"max_age":      {"60"},
		})
		require.Equal(t, domain.DecisionDenyWithRedirect, res.Decision.Kind)
		require.Equal(t, "https://rp/cb?error=login_required", res.Decision.RedirectURI)
		require.Equal(t, "max_age_passive", res.Reason)
		require.True(t, f.authenticated(t, "sid"))
	})
}

func TestInterceptorPromptLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.authenticate(t, "sid", 5*time.Minute)
	params := url.Values{"client_id": {"c1"}, "prompt": {"login"}}

	first := f.intercept(t, "sid", params)
	require.Equal(t, domain.DecisionForceReauthentication, first.Decision.Kind)
	require.True(t, first.AuthContext.ForceAuthn)
	require.False(t, f.authenticated(t, "sid"))

	handled, err := f.state.IsPromptLoginHandled(ctx, "sid")
	require.NoError(t, err)
	require.True(t, handled)

	// The user logs in again and the same request comes back through the
	// filter with no pending entry.
	f.authenticate(t, "sid", 0)
	require.NoError(t, f.state.ClearPending(ctx, "sid"))

	second := f.intercept(t, "sid", params)
	require.Equal(t, domain.DecisionProceed, second.Decision.Kind)
	require.True(t, f.authenticated(t, "sid"))

	handled, err = f.state.IsPromptLoginHandled(ctx, "sid")
	require.NoError(t, err)
	require.False(t, handled)
}

func TestInterceptorMaxAge(t *testing.T) {
	t.Parallel()

	t.Run("stale authentication is cleared", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate(t, "sid", 120*time.Second)

		res := f.intercept(t, "sid", url.Values{"client_id": {"c1"}, "max_age": {"60"}})
		require.Equal(t, domain.DecisionForceReauthentication, res.Decision.Kind)
		require.Equal(t, "max_age_exceeded", res.Reason)
		require.Equal(t, 60, *res.AuthContext.MaxAge)
		require.False(t, f.authenticated(t, "sid"))
		require.NotNil(t, f.pending(t, "sid"))
	})

	t.Run("fresh authentication proceeds", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate(t, "sid", 30*time.Second)

		res := f.intercept(t, "sid", url.Values{"client_id": {"c1"}, "max_age": {"60"}})
		require.Equal(t, domain.DecisionProceed, res.Decision.Kind)
		require.True(t, f.authenticated(t, "sid"))
	})
}

func TestInterceptorLoginHint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	res := f.intercept(t, "sid", url.Values{"client_id": {"c1"}, "login_hint": {"alice"}})
	require.Equal(t, "alice", res.AuthContext.LoginHint)

	hint, err := f.state.GetLoginHint(ctx, "sid")
	require.NoError(t, err)
	require.Equal(t, "alice", hint)

	require.NoError(t, f.ic.Complete(ctx, "sid"))
	f.intercept(t, "sid", url.Values{"client_id": {"c1"}})

	hint, err = f.state.GetLoginHint(ctx, "sid")
	require.NoError(t, err)
	require.Empty(t, hint)
}

func TestInterceptorSurfacesStoreFailures(t *testing.T) {
	t.Parallel()

	t.Run("session store", func(t *testing.T) {
		f := newFixture(t)
		m := metrics.New(prometheus.NewRegistry())
		f.ic.Metrics = m
		f.ic.Sessions = &store.SessionState{Sessions: brokenSessions{}}

		_, err := f.ic.Intercept(context.Background(), Interception{
			Path:      authorizePath,
			Params:    url.Values{"client_id": {"c1"}},
			SessionID: "sid",
		})
		require.ErrorIs(t, err, store.ErrUnavailable)
		require.ErrorIs(t, err, errBackend)
		require.InDelta(t, 1, testutil.ToFloat64(m.StoreErrors.WithLabelValues(metrics.ComponentSessions)), 0)
		require.InDelta(t, 0, testutil.ToFloat64(m.StoreErrors.WithLabelValues(metrics.ComponentClients)), 0)
	})

	t.Run("client registry", func(t *testing.T) {
		f := newFixture(t)
		m := metrics.New(prometheus.NewRegistry())
		f.ic.Metrics = m
		f.ic.Builder = &RequestBuilder{Clients: lookupFunc(func(context.Context, string) (domain.Client, error) {
			return domain.Client{}, errBackend
		})}

		_, err := f.ic.Intercept(context.Background(), Interception{
			Path:      authorizePath,
			Params:    url.Values{"client_id": {"c1"}},
			SessionID: "sid",
		})
		require.ErrorIs(t, err, store.ErrUnavailable)
		require.ErrorIs(t, err, ErrClientLookup)
		require.InDelta(t, 1, testutil.ToFloat64(m.StoreErrors.WithLabelValues(metrics.ComponentClients)), 0)
		require.InDelta(t, 0, testutil.ToFloat64(m.StoreErrors.WithLabelValues(metrics.ComponentSessions)), 0)
	})
}

func TestInterceptorObservesPendingPassThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	m := metrics.New(prometheus.NewRegistry())
	f.ic.Metrics = m
	f.authenticate(t, "sid", time.Minute)

	f.intercept(t, "sid", url.Values{"client_id": {"c1"}})
	res := f.intercept(t, "sid", url.Values{"client_id": {"c1"}})
	require.Equal(t, StatePendingExists, res.State)
	require.Equal(t, "pending_exists", res.Reason)

	require.InDelta(t, 1, testutil.ToFloat64(m.Decisions.WithLabelValues("proceed", "pending_exists")), 0)
	require.Equal(t, 1, testutil.CollectAndCount(m.InterceptLatency))
}

func TestAuthContextRoundTrip(t *testing.T) {
	t.Parallel()

	_, ok := AuthContextFromContext(context.Background())
	require.False(t, ok)

	ac := &domain.AuthenticationContext{IsPassive: true}
	got, ok := AuthContextFromContext(WithAuthContext(context.Background(), ac))
	require.True(t, ok)
	require.Same(t, ac, got)
}
