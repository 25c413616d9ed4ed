package middleware

import "context"

// SetRequestIDForTest puts a request id in ctx the way RequestID does.
func SetRequestIDForTest(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// WithAdminForTest marks ctx as authenticated the way Auth does.
func WithAdminForTest(ctx context.Context, admin, sessionID string) context.Context {
	ctx = context.WithValue(ctx, AdminKey, admin)
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
