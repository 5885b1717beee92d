package shared

import "context"

type userIDContextKey struct{}

// ContextWithUserID stores the authenticated user id in context. Identity is
// resolved upstream by the gateway; this engine only transports the id.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext extracts the user id, returning 0 when absent.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDContextKey{}).(int64)
	return id
}
