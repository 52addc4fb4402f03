package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-report-builder/internal/wizard"
)

const (
	SessionKeyHeader = "X-Session-Key"
	UserIDHeader     = "X-User-Id"

	principalKey = "principal"
)

// Principal reads the session credential and owner id from headers, falling
// back to the sessionKey and userId query parameters. Requests without both
// are rejected.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := wizard.Principal{
			SessionKey: firstNonEmpty(c.GetHeader(SessionKeyHeader), c.Query("sessionKey")),
			OwnerID:    firstNonEmpty(c.GetHeader(UserIDHeader), c.Query("userId")),
		}
		if p.SessionKey == "" || p.OwnerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session credential"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by the Principal middleware.
func PrincipalFrom(c *gin.Context) (wizard.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return wizard.Principal{}, false
	}
	p, ok := v.(wizard.Principal)
	return p, ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
