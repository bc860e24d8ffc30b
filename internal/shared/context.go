package shared

import "context"

type sessionContextKey struct{}

type actingUserContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithActingUser stores the resolved acting user id.
func ContextWithActingUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actingUserContextKey{}, userID)
}

// ActingUser returns the acting user id or ErrUnauthenticated.
func ActingUser(ctx context.Context) (string, error) {
	id, _ := ctx.Value(actingUserContextKey{}).(string)
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
