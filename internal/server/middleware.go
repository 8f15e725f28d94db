package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// rateLimit rejects requests once the shared edit bucket is empty.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			slog.Warn("Edit rate limited", "path", c.FullPath(), "client", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: ErrRateLimited.Error()})
			return
		}
		c.Next()
	}
}
