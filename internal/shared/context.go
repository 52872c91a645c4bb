package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the member session to the request context; the
// session middleware calls this once per request.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session placed by the middleware, or nil on
// an anonymous request.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
