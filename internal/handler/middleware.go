package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
	"rollcall/internal/identity"
)

const principalKey = "principal"

// RequireAuth enforces a bearer access token and resolves the caller's
// principal for downstream handlers.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := auth.Parse(tokenStr, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
		if err != nil || claims.Refresh {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		p, err := h.identity.Resolve(c.Request.Context(), claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown account"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireManager rejects callers below admin/HOD. Runs after RequireAuth.
func (h *Handler) RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).CanManage() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) identity.Principal {
	p, _ := c.Get(principalKey)
	pr, _ := p.(identity.Principal)
	return pr
}
