package utils

import "context"

type contextKey string

const (
	ContextKeyUsername      contextKey = "Username"
	ContextKeyUserId        contextKey = "UserId"
	ContextKeyRole          contextKey = "Role"
	ContextKeyCorrelationId contextKey = "CorrelationId"
)

func contextString(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return contextString(ctx, ContextKeyUsername)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ContextKeyUserId).(int)
	return v, ok
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	return contextString(ctx, ContextKeyRole)
}

// GetCorrelationIdFromContext returns the x-correlation-id of the request,
// or the id a background job generated for its run.
func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return contextString(ctx, ContextKeyCorrelationId)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ContextKeyUsername, username)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, ContextKeyUserId, userId)
}

func SetRoleInContext(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}
