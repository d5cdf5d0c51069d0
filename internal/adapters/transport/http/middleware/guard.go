package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spellbook-app/session-gateway/internal/app/session"
)

// SessionCookie carries the gateway session ID in the browser.
const SessionCookie = "spellbook_sid"

// ContextSID is the gin context key the guard stores the session ID
// under once a request is authorized.
const ContextSID = "sid"

// RequireSessionHTML gates server-rendered views. The restoration from
// the durable store happens inside IsAuthenticated; until it resolves
// nothing protected is rendered, and an unauthenticated viewer is sent
// to the login page.
func RequireSessionHTML(svc session.Service) gin.HandlerFunc {
	return guard(svc, func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
	})
}

// RequireSessionAPI gates the JSON proxy routes with a plain 401.
func RequireSessionAPI(svc session.Service) gin.HandlerFunc {
	return guard(svc, func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	})
}

func guard(svc session.Service, reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || sid == "" {
			reject(c)
			return
		}
		if !svc.IsAuthenticated(c.Request.Context(), sid) {
			reject(c)
			return
		}
		c.Set(ContextSID, sid)
		c.Next()
	}
}
