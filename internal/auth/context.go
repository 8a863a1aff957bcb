package auth

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserContextKey is the key for storing the authenticated user in the
	// request context
	UserContextKey ContextKey = "authUser"
)

// GetUser extracts the authenticated user from a request context.
// Returns nil when the request carried no valid session token.
func GetUser(ctx context.Context) *User {
	user, ok := ctx.Value(UserContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// IsAdmin reports whether the context carries an admin user.
func IsAdmin(ctx context.Context) bool {
	user := GetUser(ctx)
	return user != nil && user.Role == RoleAdmin
}
