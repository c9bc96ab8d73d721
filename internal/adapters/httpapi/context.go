package httpapi

import (
	"context"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, identityKey{}, u)
}

func IdentityFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(identityKey{}).(domain.User)
	return u, ok && u.Role != ""
}
