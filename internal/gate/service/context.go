package service

import (
	"context"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
)

type ctxKey int

const ctxKeyAuthContext ctxKey = iota

// WithAuthContext attaches the authentication context derived for the
// current authorization request.
func WithAuthContext(ctx context.Context, ac *domain.AuthenticationContext) context.Context {
	return context.WithValue(ctx, ctxKeyAuthContext, ac)
}

func AuthContextFromContext(ctx context.Context) (*domain.AuthenticationContext, bool) {
	ac, ok := ctx.Value(ctxKeyAuthContext).(*domain.AuthenticationContext)
	return ac, ok && ac != nil
}
