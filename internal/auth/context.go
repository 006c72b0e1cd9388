package auth

import "context"

type contextKey string

const contextKeyIdentity contextKey = "auth.identity"

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, id)
}

// FromContext extracts the caller identity from context.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKeyIdentity).(Identity)
	return id, ok
}
