// Package middleware carries the cross-cutting HTTP concerns: request
// logging, CORS, optional API-key auth and per-client rate limiting.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mentoria-ai/mentoria/pkg/log"
)

// Logging records one structured line per request. Request bodies are never
// logged.
func Logging() gin.HandlerFunc {
	logger := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client", c.ClientIP(),
		)
	}
}
