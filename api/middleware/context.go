package middleware

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext builds the caller identity seeded by Auth. An
// unauthenticated request yields the zero Actor.
func ActorFromContext(ctx context.Context) authz.Actor {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return authz.Actor{}
	}
	return authz.Actor{UserID: id, Role: enums.UserRole(RoleFromContext(ctx))}
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithActor injects both identity values, mostly for handler tests.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	ctx = WithUserID(ctx, actor.UserID.String())
	return context.WithValue(ctx, ctxRole, string(actor.Role))
}
