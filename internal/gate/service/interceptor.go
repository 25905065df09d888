package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/metrics"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/pkg/cryptox"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

var tracer = otel.Tracer("github.com/aussiebroadwan/oidcgate/internal/gate/service")

// Authenticator is the authentication state the interceptor consults.
// authn.SessionAuthenticator implements it.
type Authenticator interface {
	IsAuthenticated(ctx context.Context, sessionID string) (bool, error)
	ClearAuthentication(ctx context.Context, sessionID string) error
	LastAuthenticationTimestamp(ctx context.Context, sessionID string) (*time.Time, error)
}

// State is where a single interception ended.
type State int

const (
	StateNotApplicable State = iota
	StatePendingExists
	StateBuilding
	StateStored
	StateDecided
)

func (s State) String() string {
	switch s {
	case StateNotApplicable:
		return "not_applicable"
	case StatePendingExists:
		return "pending_exists"
	case StateBuilding:
		return "building"
	case StateStored:
		return "stored"
	case StateDecided:
		return "decided"
	default:
		return "unknown"
	}
}

// Interception is one inbound request as the interceptor sees it.
type Interception struct {
	Path      string
	Params    url.Values
	SessionID string
}

// Result carries the executed decision. Err holds the request-shape error
// behind a DenyWithError, if any.
type Result struct {
	State       State
	Decision    domain.Decision
	AuthContext *domain.AuthenticationContext
	Reason      string
	Err         error
}

// Interceptor sits in front of the authorize endpoint. It stores the
// authorization request on the browser session once per interaction and
// applies the prompt and max_age policies.
//
// Requests for the same session are assumed to arrive one at a time. The
// interceptor does no locking of its own.
type Interceptor struct {
	// Prefix is the protected authorize path.
	Prefix string

	Builder  *RequestBuilder
	Sessions *store.SessionState
	Auth     Authenticator
	Prompt   *PromptEvaluator
	MaxAge   *MaxAgeEvaluator
	Metrics  *metrics.Metrics

	Now func() time.Time
}

func (i *Interceptor) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Matches reports whether path is under the protected prefix. It has no side
// effects.
func (i *Interceptor) Matches(path string) bool {
	if i.Prefix == "" {
		return false
	}
	if path == i.Prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(i.Prefix, "/")+"/")
}

// Intercept runs the interception state machine for one request. The
// returned error is reserved for infrastructure faults (wrapping
// store.ErrUnavailable); every policy outcome is a Result.
func (i *Interceptor) Intercept(ctx context.Context, in Interception) (Result, error) {
	if !i.Matches(in.Path) {
		return Result{State: StateNotApplicable, Decision: domain.Proceed()}, nil
	}

	start := i.now()
	ctx, span := tracer.Start(ctx, "gate.intercept")
	defer span.End()

	ctx = slogx.With(ctx, "session", cryptox.FingerprintToken(in.SessionID))
	log := slogx.FromContext(ctx)

	pending, err := i.Sessions.GetPending(ctx, in.SessionID)
	if err != nil {
		return i.fail(ctx, span, err)
	}
	if pending != nil {
		client, err := i.Sessions.GetClient(ctx, in.SessionID)
		if err != nil {
			return i.fail(ctx, span, err)
		}
		log.Debug("authorization request already pending", "client_id", pending.ClientID)
		res := Result{
			State:       StatePendingExists,
			Decision:    domain.Proceed(),
			AuthContext: authContext(*pending, client, false),
			Reason:      "pending_exists",
		}
		i.record(span, res, start)
		return res, nil
	}

	built, err := i.Builder.Build(ctx, in.Params)
	if err != nil {
		if res, ok := i.rejectRequest(err); ok {
			log.Info("rejected authorization request", "reason", res.Reason)
			i.record(span, res, start)
			return res, nil
		}
		return i.fail(ctx, span, err)
	}
	req, client := built.Request, built.Client
	span.SetAttributes(attribute.String("gate.client_id", client.ClientID))

	if err := i.Sessions.SetPending(ctx, in.SessionID, req, built.Raw, client); err != nil {
		return i.fail(ctx, span, err)
	}
	if req.LoginHint != "" {
		err = i.Sessions.SetLoginHint(ctx, in.SessionID, req.LoginHint)
	} else {
		err = i.Sessions.ClearLoginHint(ctx, in.SessionID)
	}
	if err != nil {
		return i.fail(ctx, span, err)
	}

	res, err := i.decide(ctx, in.SessionID, req, client)
	if err != nil {
		return i.fail(ctx, span, err)
	}

	if err := i.execute(ctx, in.SessionID, res.Decision); err != nil {
		return i.fail(ctx, span, err)
	}

	log.Info("authorization request intercepted",
		"client_id", client.ClientID,
		"decision", res.Decision.Kind.String(),
		"reason", res.Reason,
	)
	i.record(span, res, start)
	return res, nil
}

// decide runs the prompt policy and, if it proceeds, the max-age policy.
func (i *Interceptor) decide(ctx context.Context, sessionID string, req domain.AuthorizationRequest, client domain.Client) (Result, error) {
	authenticated, err := i.Auth.IsAuthenticated(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	handled, err := i.Sessions.IsPromptLoginHandled(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	outcome := i.Prompt.Evaluate(ctx, PromptInput{
		Tokens:        req.Prompt,
		Authenticated: authenticated,
		LoginHandled:  handled,
		Client:        &client,
		RedirectURI:   req.RedirectURI,
		State:         req.State,
	})

	switch {
	case outcome.MarkLoginHandled:
		err = i.Sessions.SetPromptLoginHandled(ctx, sessionID)
	case outcome.ClearLoginHandled:
		err = i.Sessions.ClearPromptLoginHandled(ctx, sessionID)
	}
	if err != nil {
		return Result{}, err
	}

	decision, reason := outcome.Decision, outcome.Reason
	if decision.Kind == domain.DecisionProceed {
		last, err := i.Auth.LastAuthenticationTimestamp(ctx, sessionID)
		if err != nil {
			return Result{}, err
		}
		if i.MaxAge.Evaluate(req, client, last).Kind == domain.DecisionForceReauthentication {
			// prompt=none must never turn into an interactive login.
			if req.HasPrompt(domain.PromptNone) {
				decision = i.Prompt.LoginRequired(ctx, &client, req.RedirectURI, req.State)
				reason = "max_age_passive"
			} else {
				decision = domain.ForceReauthentication()
				reason = "max_age_exceeded"
			}
		} else if outcome.Deferred {
			reason = "max_age_satisfied"
		}
	}

	return Result{
		State:       StateDecided,
		Decision:    decision,
		Reason:      reason,
		AuthContext: authContext(req, &client, decision.Kind == domain.DecisionForceReauthentication),
	}, nil
}

// execute applies the side effects of a decision. Denials end the
// interaction so the next authorization request starts fresh.
func (i *Interceptor) execute(ctx context.Context, sessionID string, d domain.Decision) error {
	switch d.Kind {
	case domain.DecisionForceReauthentication:
		return i.Auth.ClearAuthentication(ctx, sessionID)
	case domain.DecisionDenyWithRedirect, domain.DecisionDenyWithError:
		return i.Sessions.CompleteInteraction(ctx, sessionID)
	}
	return nil
}

// Complete ends the interaction after the downstream flow has finished.
func (i *Interceptor) Complete(ctx context.Context, sessionID string) error {
	return i.Sessions.CompleteInteraction(ctx, sessionID)
}

func (i *Interceptor) rejectRequest(err error) (Result, bool) {
	var res Result
	switch {
	case errors.Is(err, ErrMissingClientID):
		res = Result{Decision: domain.DenyWithError(http.StatusBadRequest, "Missing client_id"), Reason: "missing_client_id"}
	case errors.Is(err, ErrUnknownClient):
		res = Result{Decision: domain.DenyWithError(http.StatusBadRequest, "Unknown client"), Reason: "unknown_client"}
	case errors.Is(err, ErrInvalidRequest):
		res = Result{Decision: domain.DenyWithError(http.StatusBadRequest, "Invalid authorization request"), Reason: "invalid_request"}
	default:
		return Result{}, false
	}
	res.State = StateBuilding
	res.Err = err
	return res, true
}

func (i *Interceptor) record(span trace.Span, res Result, start time.Time) {
	span.SetAttributes(
		attribute.String("gate.state", res.State.String()),
		attribute.String("gate.decision", res.Decision.Kind.String()),
		attribute.String("gate.reason", res.Reason),
	)
	i.Metrics.ObserveDecision(res.Decision.Kind.String(), res.Reason, i.now().Sub(start))
}

func (i *Interceptor) fail(ctx context.Context, span trace.Span, err error) (Result, error) {
	if errors.Is(err, ErrClientLookup) {
		i.Metrics.IncrementStoreErrors(metrics.ComponentClients)
	} else {
		i.Metrics.IncrementStoreErrors(metrics.ComponentSessions)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "interception failed")
	slogx.FromContext(ctx).Error("authorization request interception failed", "error", err)

	if !errors.Is(err, store.ErrUnavailable) {
		err = fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return Result{}, err
}

func authContext(req domain.AuthorizationRequest, client *domain.Client, forced bool) *domain.AuthenticationContext {
	ac := &domain.AuthenticationContext{
		ForceAuthn: forced,
		IsPassive:  req.HasPrompt(domain.PromptNone),
		LoginHint:  req.LoginHint,
		ACRValues:  req.ACRValues,
		MaxAge:     req.MaxAge,
	}
	if client != nil {
		if maxAge, ok := EffectiveMaxAge(req, *client); ok {
			ac.MaxAge = &maxAge
		}
	}
	return ac
}
