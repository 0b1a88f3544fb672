package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/auth"
	"storefront-api/internal/models"
)

// ContextUserKey is where the resolved caller is stored on the gin context.
const ContextUserKey = "user"

// UserResolver resolves a token subject to a live user record.
type UserResolver interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RequireAuth verifies the bearer token and attaches the resolved user
// to the context. A missing, malformed or expired token, or a subject
// that no longer exists, aborts with 401.
func RequireAuth(secret string, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireAdmin rejects callers whose role is not admin. It must run
// after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the caller attached by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
