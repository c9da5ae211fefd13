package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autoparts-returns-backend/internal/shared"
)

// RequireStaff rejects requests from actors without the staff or admin role.
func RequireStaff() gin.HandlerFunc {
	return requireRole(func(a shared.Actor) bool { return a.IsStaff() }, "staff role required")
}

// RequireAdmin rejects requests from actors without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(func(a shared.Actor) bool { return a.IsAdmin() }, "admin role required")
}

func requireRole(allowed func(shared.Actor) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok || !allowed(actor) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Access denied: " + message,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
