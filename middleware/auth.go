package middleware

import (
	"net/http"
	"strings"

	"duochat/tools/errs"

	"github.com/gin-gonic/gin"
)

// context key the handlers read the authenticated user from
const CtxUserIDKey = "userId"

// TokenResolver turns a bearer token into a user id.
type TokenResolver interface {
	ResolveUserID(token string) (string, error)
}

// Auth extracts the bearer token, resolves it, and puts the user id into the
// gin context. Requests without a resolvable user are rejected.
func Auth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}

		userID, err := resolver.ResolveUserID(token)
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated user id set by Auth; empty when absent.
func UserID(c *gin.Context) string {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return authz
}
