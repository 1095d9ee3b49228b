package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// validates bearer tokens and adds the caller to the context
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := a.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Set(scopesKey, claims.Scopes)

		c.Next()
	}
}

// rejects callers whose token lacks scope; must run after Middleware
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopes, _ := c.Get(scopesKey)

		granted, _ := scopes.([]string)
		if !slices.Contains(granted, scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token lacks scope " + scope})
			return
		}

		c.Next()
	}
}

// lets every request through when auth is disabled
func Optional(a *Authenticator) gin.HandlerFunc {
	if a == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return a.Middleware()
}

// scope check that is a no-op when auth is disabled
func OptionalScope(a *Authenticator, scope string) gin.HandlerFunc {
	if a == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return RequireScope(scope)
}

// extracts the caller set by Middleware
func GetSubject(c *gin.Context) (string, bool) {
	subject, exists := c.Get(SubjectKey)
	if !exists {
		return "", false
	}

	s, ok := subject.(string)

	return s, ok
}
