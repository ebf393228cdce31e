package userctx

import (
	"context"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// Create a new context with the user id
func New(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Extract the user id from the context
func FromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
