package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/jwt"
)

const actorContextKey = "actor"

// AuthMiddleware validates the bearer token and stores the acting identity
// in the request context. Every lifecycle command reads the actor from here;
// the services never consult global session state.
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid user ID in token"})
			c.Abort()
			return
		}

		role := claims.Role
		if role == "" {
			role = shared.RoleCustomer
		}

		c.Set(actorContextKey, shared.Actor{
			ID:    userID,
			Email: claims.Email,
			Role:  role,
		})

		c.Next()
	}
}

// GetActor extracts the acting identity set by AuthMiddleware.
func GetActor(c *gin.Context) (shared.Actor, bool) {
	v, exists := c.Get(actorContextKey)
	if !exists {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}
