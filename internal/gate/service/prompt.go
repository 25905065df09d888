package service

import (
	"context"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

// PromptInput is everything the prompt policy looks at.
type PromptInput struct {
	Tokens        []string
	Authenticated bool
	LoginHandled  bool
	Client        *domain.Client
	RedirectURI   string
	State         string
}

// PromptOutcome is the prompt decision plus the marker bookkeeping the
// caller must persist.
type PromptOutcome struct {
	Decision domain.Decision

	// Deferred is set when neither none nor login was requested and the
	// max-age policy decides.
	Deferred bool

	MarkLoginHandled  bool
	ClearLoginHandled bool

	Reason string
}

// PromptEvaluator applies the prompt parameter. none wins over login.
type PromptEvaluator struct {
	Redirects RedirectResolver
}

func (e *PromptEvaluator) Evaluate(ctx context.Context, in PromptInput) PromptOutcome {
	var hasNone, hasLogin bool
	for _, tok := range in.Tokens {
		switch tok {
		case domain.PromptNone:
			hasNone = true
		case domain.PromptLogin:
			hasLogin = true
		case domain.PromptConsent, domain.PromptSelectAccount:
			// valid, not acted on here
		default:
			slogx.FromContext(ctx).Warn("ignoring unknown prompt value", "prompt", tok)
		}
	}

	switch {
	case hasNone && in.Authenticated:
		return PromptOutcome{Decision: domain.Proceed(), Reason: "prompt_none_authenticated"}

	case hasNone:
		return PromptOutcome{Decision: e.LoginRequired(ctx, in.Client, in.RedirectURI, in.State), Reason: "prompt_none_unauthenticated"}

	case hasLogin && !in.LoginHandled:
		return PromptOutcome{
			Decision:         domain.ForceReauthentication(),
			MarkLoginHandled: true,
			Reason:           "prompt_login",
		}

	case hasLogin:
		return PromptOutcome{
			Decision:          domain.Proceed(),
			ClearLoginHandled: true,
			Reason:            "prompt_login_handled",
		}
	}

	return PromptOutcome{Decision: domain.Proceed(), Deferred: true}
}

// LoginRequired redirects back to the client with error=login_required, or
// denies outright when there is no usable redirect target.
func (e *PromptEvaluator) LoginRequired(ctx context.Context, client *domain.Client, redirectURI, state string) domain.Decision {
	log := slogx.FromContext(ctx)

	if client == nil || redirectURI == "" {
		log.Info("login required without a redirect target")
		return domain.AccessDenied()
	}

	canonical, err := e.Redirects.Resolve(redirectURI, *client)
	if err != nil {
		log.Warn("login required with unregistered redirect_uri", "client_id", client.ClientID)
		return domain.AccessDenied()
	}

	target, err := BuildErrorRedirect(canonical, ErrorLoginRequired, state)
	if err != nil {
		return domain.AccessDenied()
	}
	return domain.DenyWithRedirect(target)
}
