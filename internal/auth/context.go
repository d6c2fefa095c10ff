package auth

import "context"

type ctxKey string

const userIDKey ctxKey = "auth_user_id"

// ContextWithUser stores the authenticated user ID in the context.
func ContextWithUser(ctx context.Context, userID int64) context.Context {
	if userID <= 0 {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(userIDKey).(int64)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
