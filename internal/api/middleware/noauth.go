package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoAuth is a pass-through middleware for when AUTH_MODE=none.
// It allows all requests without authentication. Self-hosted deployments get
// full access, including the destructive dataset operations.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Set a dummy identity for logging purposes
		c.Set("user_id", "anonymous")
		c.Set("user_role", "admin")
		c.Next()
	}
}
