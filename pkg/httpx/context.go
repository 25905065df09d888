package httpx

import "context"

type ctxKey string

const (
	CtxKeySessionID ctxKey = "session_id"
)

// WithSessionID stores the browser session id for downstream handlers.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, CtxKeySessionID, sessionID)
}

// SessionIDFromContext returns the browser session id, if one was resolved.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeySessionID).(string)
	return v, ok && v != ""
}
