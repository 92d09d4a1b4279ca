package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/feastflow-backend/pkg/auth"
)

type contextKey string

const (
	ctxActor contextKey = "actor"
)

// ActorFromContext returns the authenticated caller, or the zero Actor for guests.
func ActorFromContext(ctx context.Context) pkgAuth.Actor {
	if ctx == nil {
		return pkgAuth.Actor{}
	}
	if v, ok := ctx.Value(ctxActor).(pkgAuth.Actor); ok {
		return v
	}
	return pkgAuth.Actor{}
}

func UserIDFromContext(ctx context.Context) string {
	return ActorFromContext(ctx).ID
}

// WithActor injects the caller identity into the context.
func WithActor(ctx context.Context, actor pkgAuth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
