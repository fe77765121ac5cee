package middleware

import (
	"context"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// actorKey is the key used to store the authenticated actor.
// Using a custom type prevents collisions.
const actorKey = contextKey("actor")

// WithActor returns a copy of ctx carrying the authenticated actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActorFromContext retrieves the authenticated actor from the Gin context.
// It returns the actor and a boolean indicating if it was found.
func GetActorFromContext(c *gin.Context) (domain.Actor, bool) {
	actorVal, exists := c.Get(string(actorKey))
	if !exists {
		// check in the request context as well
		actor, ok := c.Request.Context().Value(actorKey).(domain.Actor)
		return actor, ok
	}

	actor, ok := actorVal.(domain.Actor)
	return actor, ok
}
