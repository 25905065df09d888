package service

import (
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
)

// MaxAgeEvaluator forces re-authentication once the last login is older
// than the effective max_age.
type MaxAgeEvaluator struct {
	Now func() time.Time
}

func (e *MaxAgeEvaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// EffectiveMaxAge prefers the request value over the client default.
func EffectiveMaxAge(req domain.AuthorizationRequest, client domain.Client) (int, bool) {
	if req.MaxAge != nil {
		return *req.MaxAge, true
	}
	if client.DefaultMaxAge != nil {
		return *client.DefaultMaxAge, true
	}
	return 0, false
}

// Evaluate returns ForceReauthentication when whole seconds elapsed since
// lastAuth exceed the effective max age, and Proceed otherwise, including
// when either value is missing.
func (e *MaxAgeEvaluator) Evaluate(req domain.AuthorizationRequest, client domain.Client, lastAuth *time.Time) domain.Decision {
	maxAge, ok := EffectiveMaxAge(req, client)
	if !ok || lastAuth == nil {
		return domain.Proceed()
	}

	elapsed := int64(e.now().Sub(*lastAuth) / time.Second)
	if elapsed > int64(maxAge) {
		return domain.ForceReauthentication()
	}
	return domain.Proceed()
}
