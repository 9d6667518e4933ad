package server

import (
	"strings"
	"time"

	"auction-bidding/services/bidding/helpers"
	"auction-bidding/utils"

	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
		"user":    helpers.CurrentUser(c),
	})
}

// CurrentUserMiddleware stores the caller identified by the auth proxy in
// the gin context. Requests without the header stay anonymous.
func CurrentUserMiddleware(c *gin.Context) {
	if userID := strings.TrimSpace(c.GetHeader(helpers.UserHeader)); userID != "" {
		c.Set(helpers.CurrentUserKey, userID)
	}
	c.Next()
}
