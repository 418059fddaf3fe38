package middleware

import (
	"context"

	"github.com/google/uuid"
)

type identityKey struct{}

// identity is what Auth learned about the caller. Anonymous requests carry
// the zero value.
type identity struct {
	userID    string
	role      string
	sessionID string
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func withIdentity(ctx context.Context, id identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

func UserIDFromContext(ctx context.Context) string {
	return identityFrom(ctx).userID
}

// UserUUIDFromContext returns uuid.Nil for anonymous requests.
func UserUUIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func RoleFromContext(ctx context.Context) string {
	return identityFrom(ctx).role
}

// SessionIDFromContext returns the access token jti, which keys the Redis session.
func SessionIDFromContext(ctx context.Context) string {
	return identityFrom(ctx).sessionID
}

// WithUserID sets the caller's user id, keeping any role already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	id := identityFrom(ctx)
	id.userID = userID
	return withIdentity(ctx, id)
}

// WithRole sets the caller's role, keeping any user id already present.
func WithRole(ctx context.Context, role string) context.Context {
	id := identityFrom(ctx)
	id.role = role
	return withIdentity(ctx, id)
}
