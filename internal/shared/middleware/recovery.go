package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"autoparts-returns-backend/internal/shared/response"
	"autoparts-returns-backend/pkg/logger"
)

// Recovery converts a handler panic into the standard error envelope
// instead of a dropped connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorWithFields("panic recovered", fmt.Errorf("%v", r), map[string]interface{}{
					"request_id": c.GetString("request_id"),
					"path":       c.Request.URL.Path,
					"stack":      string(debug.Stack()),
				})

				response.InternalServerError(c, "Something went wrong handling the request")
				c.Abort()
			}
		}()

		c.Next()
	}
}
