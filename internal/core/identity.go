package core

import (
	"context"
	"time"
)

// UserID identifies the person performing an operation.
type UserID int64

type actorKey struct{}

// WithActor returns a context carrying the acting user.
func WithActor(ctx context.Context, id UserID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFromContext returns the acting user. Operations never fall back to a
// default identity; callers decide that before reaching the core.
func ActorFromContext(ctx context.Context) (UserID, error) {
	id, ok := ctx.Value(actorKey{}).(UserID)
	if !ok || id <= 0 {
		return 0, ErrMissingActor
	}
	return id, nil
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }
