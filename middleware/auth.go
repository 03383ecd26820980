package middleware

import (
	"context"
	"net/http"
	"strings"

	"admin-service/apperr"
	"admin-service/model"

	"github.com/gin-gonic/gin"
)

const (
	userKey     = "user"
	TokenCookie = "token"
)

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Protect requires a valid session token. The token is read from the token
// cookie, a Bearer Authorization header or the token query parameter.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), tokenFrom(c))
		if err != nil {
			status := apperr.HTTPStatus(err)
			message := apperr.Message(err)
			if status == http.StatusInternalServerError {
				_ = c.Error(err)
				message = "Server error"
			}
			c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
			return
		}
		SetUser(c, user)
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookie); err == nil && token != "" && token != "none" {
		return token
	}
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

// IsAdmin rejects users without the admin role. It must run after Protect.
func IsAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Access denied: Admin privileges required",
			})
			return
		}
		c.Next()
	}
}

// SetUser stores the authenticated user on the context.
func SetUser(c *gin.Context, user *model.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the user stored by Protect.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
