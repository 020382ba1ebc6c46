package session

import "context"

type ctxKey struct{}

// WithID stores the visitor session id on the context.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the visitor session id set by the session middleware.
func IDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

type visitorKey struct{}

// WithVisitorID stores the long-lived visitor id on the context.
func WithVisitorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorKey{}, id)
}

// VisitorIDFromContext returns the visitor id set by the session middleware.
func VisitorIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(visitorKey{}).(string)
	return id, ok && id != ""
}
