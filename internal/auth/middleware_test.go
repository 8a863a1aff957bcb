package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc123", bearerToken("Bearer abc123"))
	assert.Equal(t, "abc123", bearerToken("abc123"))
	assert.Equal(t, "abc123", bearerToken("Bearer   abc123  "))
	assert.Equal(t, "", bearerToken(""))
}

func TestGetUser(t *testing.T) {
	assert.Nil(t, GetUser(context.Background()))

	user := &User{Email: "crew@example.com", Role: RoleCrew}
	ctx := context.WithValue(context.Background(), UserContextKey, user)
	assert.Equal(t, user, GetUser(ctx))
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, IsAdmin(context.Background()))

	crew := &User{Email: "crew@example.com", Role: RoleCrew}
	assert.False(t, IsAdmin(context.WithValue(context.Background(), UserContextKey, crew)))

	admin := &User{Email: "admin@example.com", Role: RoleAdmin}
	assert.True(t, IsAdmin(context.WithValue(context.Background(), UserContextKey, admin)))
}
