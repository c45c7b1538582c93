package authorization

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/servora/servora/internal/shared/constants"
	"github.com/servora/servora/internal/shared/errors"
)

const actorKey = "actor"

// SetActor stores the acting user on the gin context.
func SetActor(c *gin.Context, actor Actor) {
	c.Set(actorKey, actor)
	c.Set(constants.ContextKeyUserID, actor.ID)
	c.Set(constants.ContextKeyUserRole, string(actor.Role))
	c.Set(constants.ContextKeyDepartment, actor.Department)
}

// ActorFrom returns the acting user set by the auth middleware.
func ActorFrom(c *gin.Context) (Actor, error) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, errors.NewUnauthorizedError("authentication required")
	}
	actor, ok := v.(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, errors.NewUnauthorizedError("authentication required")
	}
	return actor, nil
}

// RequireMinRole rejects requests whose actor ranks below min.
func RequireMinRole(min UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := ActorFrom(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if !actor.Role.AtLeast(min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":  "insufficient role",
				"reason": "role-insufficient",
			})
			return
		}
		c.Next()
	}
}
