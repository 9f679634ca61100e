package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recipehub/pkg/models"
)

const (
	CtxClaimsKey = "auth_claims"
	CtxUserKey   = "auth_user"
)

// RequireToken verifies the bearer identity token and stores its claims.
// It does not require a local user row; register uses it.
func RequireToken(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifyBearer(c, tokens) {
			return
		}
		c.Next()
	}
}

// Middleware verifies the token and loads the registered local user.
func Middleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifyBearer(c, tokens) {
			return
		}

		u, err := repo.GetByUID(c.Request.Context(), MustGetClaims(c).UID())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
			return
		}
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not registered"})
			return
		}
		c.Set(CtxUserKey, u)
		c.Next()
	}
}

func verifyBearer(c *gin.Context, tokens TokenService) bool {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return false
	}

	raw := strings.TrimSpace(h[len("Bearer "):])
	claims, err := tokens.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return false
	}
	c.Set(CtxClaimsKey, claims)
	return true
}

// AdminOnly must run after Middleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !MustGetUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

func MustGetUser(c *gin.Context) *models.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
