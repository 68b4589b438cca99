// Package middleware provides gin middleware shared by all routes.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key holding the caller's user id.
const userIDKey = "user_id"

// userIDHeader carries the caller identity. Authentication proper is out
// of scope; upstream infrastructure is trusted to set this.
const userIDHeader = "X-User-ID"

// Logging returns middleware that logs each request via slog.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// RequireUser extracts the caller's user id from the request header and
// rejects requests without one.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_request",
				"message": userIDHeader + " header is required",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the caller's user id stored by RequireUser.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
