package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"slot-booking-api/internal/auth"
)

const UserIDKey = "uid"

// Auth accepts an Authorization bearer token or the httponly
// access_token cookie and stores the caller's user id on the context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		}
		if raw == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				raw = cookie
			}
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}

		claims, err := auth.ParseToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID returns the authenticated caller id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
