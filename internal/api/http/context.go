package http

import (
	"context"

	"carrental-backend/internal/domain"
)

type actorKey struct{}

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller put there by the auth middleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok && actor.UserID != ""
}
