package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs every request at the edge. Anything that could
// carry token material (Authorization, cookies) is redacted before it
// reaches the log.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ts := time.Now()
		c.Next()

		latency := time.Since(ts)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("origin", scrubHeader(c.Request.Header, "Origin")),
		}

		if c.IsAborted() {
			log.Warn("request aborted", fields...)
			return
		}
		for _, e := range c.Errors {
			log.Error("handler error", append(fields, zap.Error(e))...)
		}
		log.Info("request completed", fields...)
	}
}

func scrubHeader(h http.Header, key string) string {
	k := strings.ToLower(key)
	if strings.Contains(k, "authorization") || strings.Contains(k, "cookie") {
		return "[redacted]"
	}
	return h.Get(key)
}
