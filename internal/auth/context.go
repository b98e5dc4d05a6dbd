package auth

import (
	"context"

	"github.com/yatube/yatube-backend/internal/db/entities"
)

type contextKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, u *entities.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *entities.User {
	u, _ := ctx.Value(contextKey{}).(*entities.User)
	return u
}
