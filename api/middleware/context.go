package middleware

import "context"

// Actor is the authenticated caller attached by Auth.
type Actor struct {
	UserID string
	Role   string
}

type actorKey struct{}

// WithActor stores the caller on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller and whether one was attached.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// WithUserID attaches a caller with no role, mostly for handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	actor, _ := ActorFromContext(ctx)
	actor.UserID = userID
	return WithActor(ctx, actor)
}

func UserIDFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.UserID
}

func RoleFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.Role
}
