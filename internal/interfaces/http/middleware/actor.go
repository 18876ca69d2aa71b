package middleware

import (
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/resale/backoffice/internal/domain/receiving"
)

// Actor headers identify who performs a mutation
const (
	ActorNameHeader       = "X-Actor-Name"
	ActorDepartmentHeader = "X-Actor-Department"
	IdempotencyKeyHeader  = "Idempotency-Key"

	actorKey = "actor"
)

// MaxActorNameLength caps the actor header, in characters
const MaxActorNameLength = 100

// Actor reads the actor headers into the gin context. Missing or malformed
// values are left for the workflow to reject, so read-only routes work
// without them.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(ActorNameHeader))
		if utf8.RuneCountInString(name) > MaxActorNameLength {
			name = string([]rune(name)[:MaxActorNameLength])
		}
		dept := receiving.Department(strings.ToUpper(strings.TrimSpace(c.GetHeader(ActorDepartmentHeader))))
		c.Set(actorKey, receiving.Actor{Name: name, Department: dept})
		c.Next()
	}
}

// GetActor returns the actor stored by Actor, falling back to the raw headers
func GetActor(c *gin.Context) receiving.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(receiving.Actor); ok {
			return actor
		}
	}
	return receiving.Actor{
		Name:       strings.TrimSpace(c.GetHeader(ActorNameHeader)),
		Department: receiving.Department(strings.ToUpper(strings.TrimSpace(c.GetHeader(ActorDepartmentHeader)))),
	}
}
