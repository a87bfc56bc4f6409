package middleware

import "context"

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithUser injects the authenticated identity into the context. Exposed for
// handler tests that bypass the Auth middleware.
func WithUser(ctx context.Context, userID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
