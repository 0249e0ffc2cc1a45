package shared

import "context"

// Principal is the authenticated acting user. It is resolved once by the auth
// middleware and passed explicitly into every operation; operations never look
// the current user up ambiently.
type Principal struct {
	UserID int64
	Email  string
	Name   string
}

// RequestMeta carries transport details recorded alongside audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type sessionContextKey struct{}
type principalContextKey struct{}
type requestMetaContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithPrincipal stores the acting user in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the acting user. ok is false when the request
// is unauthenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// ContextWithRequestMeta stores transport details in context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaContextKey{}, meta)
}

// RequestMetaFromContext extracts transport details; zero value when absent.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaContextKey{}).(RequestMeta)
	return meta
}
