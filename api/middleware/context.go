package middleware

import (
	"context"

	"github.com/angelmondragon/literature-backend/pkg/auth"
)

type contextKey string

const (
	ctxActor     contextKey = "actor"
	ctxRequestID contextKey = "request_id"
	ctxAccess    contextKey = "access_log"
)

// accessEntry is shared between Logging and the handlers below it. Auth runs in
// a nested route group, so the actor it resolves only reaches the outer access
// log through this pointer.
type accessEntry struct {
	actor    auth.Actor
	hasActor bool
}

// WithActor stores the authenticated caller on the context.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if entry, ok := ctx.Value(ctxAccess).(*accessEntry); ok && entry != nil {
		entry.actor = actor
		entry.hasActor = true
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller seeded by Auth.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(auth.Actor)
	return actor, ok
}

func UserIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return actor.UserID.String()
}

func OrganizationIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return actor.OrganizationID.String()
}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

func withAccessEntry(ctx context.Context) (context.Context, *accessEntry) {
	entry := &accessEntry{}
	return context.WithValue(ctx, ctxAccess, entry), entry
}
